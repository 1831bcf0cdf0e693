package fconame

import "github.com/fsentry/fsentry/pkg/fsentry/wire"

// Write serializes the name as its string form plus delimiter and
// case-sensitivity flags. For legacy-compatibility the delimiter is
// always encoded as '/' on the wire regardless of the in-memory
// delimiter the Name was constructed with (spec §4.1).
func (n Name) Write(w *wire.Writer) {
	w.WriteString(n.AsString())
	w.WriteBytes([]byte{'/'})
	w.WriteBool(n.table.casePolicy == CaseInsensitive)
}

// Read deserializes a name previously written with Write, interning its
// components against table.
func Read(r *wire.Reader, table *Table) Name {
	s := r.ReadString()
	r.ReadBytes(1) // wire delimiter, always '/'; in-memory delimiter comes from table's caller.
	_ = r.ReadBool()
	return New(table, s, '/')
}
