package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixDocument = "doc"
	PrefixPath     = "path"
	PrefixGroup    = "grp"
	PrefixCommand  = "cmd"
	PrefixSession  = "sess"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewDocumentID() string { return New(PrefixDocument) }
func NewPathID() string     { return New(PrefixPath) }
func NewGroupID() string    { return New(PrefixGroup) }
func NewCommandID() string  { return New(PrefixCommand) }
func NewSessionID() string  { return New(PrefixSession) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

// HasPrefix reports whether id is a well-formed typeid with the given prefix.
func HasPrefix(id, prefix string) bool {
	return Validate(id, prefix) == nil
}
