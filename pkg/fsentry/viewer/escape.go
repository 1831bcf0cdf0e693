package viewer

import (
	"fmt"
	"strings"

	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
)

// escapeComponent escapes delim, the backslash itself, and any
// non-printable byte within a single path component, so that the
// rendered text is unambiguous to re-parse (spec §4.12).
func escapeComponent(component string, delim byte) string {
	var b strings.Builder
	for i := 0; i < len(component); i++ {
		c := component[i]
		switch {
		case c == delim || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, "\\x%02x", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// RenderName escape-encodes name for display, componentwise, so a
// delimiter or control byte embedded in a path component can never be
// mistaken for the structural delimiter between components.
func RenderName(name fconame.Name) string {
	delim := name.Delimiter()
	parts := name.Iter()
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = escapeComponent(p, delim)
	}
	joined := strings.Join(escaped, string(delim))
	if len(parts) == 1 {
		return joined + string(delim)
	}
	return joined
}
