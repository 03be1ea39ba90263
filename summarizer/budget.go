package summarizer

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

const (
	DefaultMaxTokens      = 100000
	DefaultReservedTokens = 5000
)

// Budget splits the model context between thread text and attachment text.
type Budget struct {
	codec     tokenizer.Codec
	maxTokens int
	reserved  int
}

func NewBudget(maxTokens, reserved int) (*Budget, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "load tokenizer")
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if reserved < 0 || reserved >= maxTokens {
		reserved = DefaultReservedTokens
	}
	return &Budget{codec: codec, maxTokens: maxTokens, reserved: reserved}, nil
}

// Limits returns 70% and 30% of the tokens left after the reservation.
func (b *Budget) Limits() (thread, attachments int) {
	available := b.maxTokens - b.reserved
	return available * 7 / 10, available * 3 / 10
}

func (b *Budget) Count(text string) (int, error) {
	ids, _, err := b.codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "encode")
	}
	return len(ids), nil
}

// Truncate cuts text to at most limit tokens. The result never ends in a partial
// UTF-8 sequence and re-encodes within limit.
func (b *Budget) Truncate(text string, limit int) (string, error) {
	if limit <= 0 {
		return "", nil
	}
	ids, _, err := b.codec.Encode(text)
	if err != nil {
		return "", errors.Wrap(err, "encode")
	}
	if len(ids) <= limit {
		return text, nil
	}
	n := limit
	for n > 0 {
		out, err := b.codec.Decode(ids[:n])
		if err != nil {
			return "", errors.Wrap(err, "decode")
		}
		out = trimPartialRune(out)
		count, err := b.Count(out)
		if err != nil {
			return "", err
		}
		if count <= limit {
			return out, nil
		}
		n -= max(count-limit, 1)
	}
	return "", nil
}

func trimPartialRune(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-size]
	}
	return s
}
