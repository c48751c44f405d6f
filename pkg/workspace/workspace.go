// Package workspace recovers real workspace paths from the opaque hashes
// Cursor uses to name its per-workspace chat directories.
//
// A chat directory is named md5(path) and the inverse is not available, so
// paths are recovered from the project registry (~/.cursor/projects), whose
// entries carry the path with every "/" replaced by "-". Because "-" is also
// a legal path character, every decoded candidate is re-hashed and only an
// exact match is trusted.
package workspace

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrNotFound is returned when no registry entry reproduces a hash.
var ErrNotFound = errors.New("workspace not found")

// Mapping is a verified hash to workspace path pairing.
type Mapping struct {
	Hash string `json:"hash"`
	Path string `json:"path"`
}

// Hash returns the lowercase hex MD5 of path, the identifier Cursor uses for
// the chat directory of the workspace at path.
func Hash(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

// EncodePath returns the project registry folder name for an absolute path.
func EncodePath(path string) string {
	return strings.ReplaceAll(strings.TrimPrefix(path, "/"), "/", "-")
}
