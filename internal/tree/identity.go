package tree

import (
	"strings"

	"github.com/opencontainers/go-digest"
)

// Identity derives a stable node identifier from an ordered list of
// name parts. The same parts always produce the same identifier and
// distinct part lists do not collide in practice (sha256 output
// space). The "n" prefix keeps the identifier from starting with a
// digit, and the NUL joiner keeps ("a","bc") distinct from ("ab","c").
func Identity(parts ...string) string {
	return "n" + digest.SHA256.FromString(strings.Join(parts, "\x00")).Encoded()
}
