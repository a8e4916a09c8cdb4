package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns an opaque random identity prefixed with its entity kind,
// e.g. "rfp_3f2b9c0e4a1d4e5f8a7b6c5d4e3f2a1b".
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return raw
	}
	return prefix + "_" + raw
}
