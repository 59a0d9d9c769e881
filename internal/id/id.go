// Package id generates prefixed identifiers for feed entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the entities the core creates.
const (
	PrefixPost     = "post"
	PrefixTag      = "tag"
	PrefixComment  = "cmt"
	PrefixCategory = "cat"
	PrefixTrack    = "trk"
	PrefixLog      = "log"
	PrefixToken    = "tok"
)

// Generate creates a prefixed NanoID, e.g. "post-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics on failure.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
