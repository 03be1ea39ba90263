package responder

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var ErrInvalidDraft = errors.New("no safe draft available")

const subjectMarker = "subject:"

// ValidationError explains why a draft was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidDraft.Error(), e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDraft
}

// ParseDraft splits a completion into subject and body. The first line starting
// with "Subject:" supplies the subject and the lines after it the body. Without
// one the subject is derived from the first non-empty line and the whole text is the body.
func ParseDraft(text string) (subject, body string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), subjectMarker) {
			subject = strings.TrimSpace(trimmed[len(subjectMarker):])
			body = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			return subject, body
		}
	}
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return "Re: " + trimmed, text
		}
	}
	return "Re: No Subject", text
}

// Validate rejects drafts that are empty, too short or contain a denylisted term.
func Validate(subject, body string, denylist []string, minLength int) error {
	if strings.TrimSpace(subject) == "" {
		return &ValidationError{Reason: "empty subject"}
	}
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Reason: "empty content"}
	}
	if utf8.RuneCountInString(body) < minLength {
		return &ValidationError{Reason: fmt.Sprintf("content shorter than %d characters", minLength)}
	}
	lowerSubject := strings.ToLower(subject)
	lowerBody := strings.ToLower(body)
	for _, term := range denylist {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if strings.Contains(lowerSubject, t) || strings.Contains(lowerBody, t) {
			return &ValidationError{Reason: "content contains a denylisted term"}
		}
	}
	return nil
}
