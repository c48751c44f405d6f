package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// maxExhaustiveDashes bounds the blind enumeration of decodings. A name with
// n dashes has 2^n readings.
const maxExhaustiveDashes = 16

// existingCandidates returns the decodings of an encoded registry name that
// exist as directories on disk. Segments are grown greedily from the root so
// only reachable prefixes are explored.
func existingCandidates(encoded string) []string {
	parts := strings.Split(encoded, "-")
	if len(parts) == 0 || parts[0] == "" {
		return nil
	}

	var found []string
	var walk func(base string, rest []string)
	walk = func(base string, rest []string) {
		if len(rest) == 0 {
			found = append(found, base)
			return
		}
		for i := 1; i <= len(rest); i++ {
			candidate := filepath.Join(base, strings.Join(rest[:i], "-"))
			info, err := os.Stat(candidate)
			if err != nil || !info.IsDir() {
				continue
			}
			walk(candidate, rest[i:])
		}
	}
	walk("/", parts)

	return found
}

// allCandidates enumerates every decoding of encoded, treating each dash as
// either a separator or a literal. It returns nil when the name has too many
// dashes to enumerate.
func allCandidates(encoded string) []string {
	parts := strings.Split(encoded, "-")
	gaps := len(parts) - 1
	if gaps > maxExhaustiveDashes {
		return nil
	}

	out := make([]string, 0, 1<<gaps)
	var b strings.Builder
	for mask := 0; mask < 1<<gaps; mask++ {
		b.Reset()
		b.WriteByte('/')
		b.WriteString(parts[0])
		for i := 1; i < len(parts); i++ {
			if mask&(1<<(i-1)) != 0 {
				b.WriteByte('-')
			} else {
				b.WriteByte('/')
			}
			b.WriteString(parts[i])
		}
		out = append(out, b.String())
	}

	return out
}
