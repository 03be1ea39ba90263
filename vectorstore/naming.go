package vectorstore

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var ErrCollectionName = errors.New("invalid collection name")

const attachmentsSuffix = "_attachments"

// Naming turns a user identity into collection names.
type Naming struct {
	AtSentinel     string
	PeriodSentinel string
}

func DefaultNaming() Naming {
	return Naming{AtSentinel: "__AT", PeriodSentinel: "__PERIOD"}
}

type Collections struct {
	Emails      string
	Attachments string
}

func (n Naming) Collections(user string) (Collections, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Collections{}, errors.Wrap(ErrCollectionName, "empty user identity")
	}
	base := strings.NewReplacer("@", n.AtSentinel, ".", n.PeriodSentinel).Replace(user)
	return Collections{
		Emails:      base,
		Attachments: base + attachmentsSuffix,
	}, nil
}

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// physicalName maps a collection name onto a backend identifier. The readable
// prefix is lossy, so a digest of the full name keeps the mapping injective.
func physicalName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return unsafeIdent.ReplaceAllString(name, "_") + "_" + hex.EncodeToString(sum[:6])
}
