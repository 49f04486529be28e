// Package ident maps arbitrary table and attribute names onto identifiers
// the backing engines accept. The emulated service allows names up to 255
// characters containing punctuation such as "." and "-"; SQL identifier
// syntax does not. The mapping is deterministic and injective, so two
// distinct caller names can never meet in one storage identifier, and it
// is reversible for display and debugging.
package ident

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxNameLen is the longest caller-supplied name accepted, matching the
// emulated service's table name limit.
const MaxNameLen = 255

const (
	plainPrefix   = "p_"
	encodedPrefix = "x_"
)

// Sanitize turns a caller-supplied name into a storage-safe identifier.
// Names that are already lowercase alphanumeric pass through under one
// prefix; everything else is hex-encoded under a distinct prefix. The two
// prefixes keep the mapping injective without any shared state.
func Sanitize(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is empty")
	}
	if len(name) > MaxNameLen {
		return "", fmt.Errorf("name is %d characters, limit is %d", len(name), MaxNameLen)
	}
	if plain(name) {
		return plainPrefix + name, nil
	}
	return encodedPrefix + hex.EncodeToString([]byte(name)), nil
}

// MustSanitize is Sanitize for names already validated by the caller.
func MustSanitize(name string) string {
	id, err := Sanitize(name)
	if err != nil {
		panic(err)
	}
	return id
}

// Restore is the inverse of Sanitize.
func Restore(id string) (string, error) {
	switch {
	case strings.HasPrefix(id, plainPrefix):
		return id[len(plainPrefix):], nil
	case strings.HasPrefix(id, encodedPrefix):
		raw, err := hex.DecodeString(id[len(encodedPrefix):])
		if err != nil {
			return "", fmt.Errorf("identifier %q: %w", id, err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("identifier %q carries no known prefix", id)
	}
}

// plain reports whether the name survives as an identifier untouched.
// Uppercase is excluded so that engines that fold identifier case cannot
// conflate two caller names differing only in case.
func plain(name string) bool {
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
