package fconame

import "strings"

// OSPath renders a name as a filesystem path for use in syscalls: unlike
// AsString (which exists for display and follows the "trailing
// delimiter on single-component names" rule of §4.1), OSPath never adds
// a spurious trailing separator and treats a leading empty component as
// the marker of an absolute path.
func OSPath(n Name) string {
	parts := n.Iter()
	if len(parts) > 0 && parts[0] == "" {
		return "/" + strings.Join(parts[1:], "/")
	}
	return strings.Join(parts, "/")
}
