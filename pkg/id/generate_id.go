package id

import (
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns a public identifier: exactly 32 lowercase hex characters
// (a v4 UUID without separators).
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
