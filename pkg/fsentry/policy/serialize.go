package policy

import (
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

// Write serializes the rule: start point, stop points, recurse depth,
// property mask, and attributes.
func (r *Rule) Write(w *wire.Writer) {
	r.startPoint.Write(w)

	stops := r.StopPoints()
	w.WriteUint32(uint32(len(stops)))
	for _, sp := range stops {
		sp.Write(w)
	}

	w.WriteInt32(int32(r.recurseDepth))
	r.propMask.Write(w)

	w.WriteString(r.attrs.Name)
	w.WriteUint32(uint32(r.attrs.Severity))
	w.WriteUint32(uint32(len(r.attrs.EmailList)))
	for _, addr := range r.attrs.EmailList {
		w.WriteString(addr)
	}
}

// Read deserializes a rule previously written with Write.
func Read(r *wire.Reader, table *fconame.Table) (*Rule, error) {
	start := fconame.Read(r, table)

	numStops := int(r.ReadUint32())
	stops := make([]fconame.Name, numStops)
	for i := range stops {
		stops[i] = fconame.Read(r, table)
	}

	depth := int(r.ReadInt32())
	mask := propvector.Read(r)

	name := r.ReadString()
	severity := int(r.ReadUint32())
	numEmails := int(r.ReadUint32())
	emails := make([]string, numEmails)
	for i := range emails {
		emails[i] = r.ReadString()
	}

	rule, err := New(start, depth, mask, Attrs{Name: name, Severity: severity, EmailList: emails})
	if err != nil {
		return nil, err
	}
	for _, sp := range stops {
		if err := rule.AddStopPoint(sp); err != nil {
			return nil, err
		}
	}
	return rule, nil
}

// WriteList serializes a rule list in insertion order (the order reports
// and the database pair rules by).
func WriteList(w *wire.Writer, l *RuleList) {
	rules := l.InsertionOrder()
	w.WriteUint32(uint32(len(rules)))
	for _, rule := range rules {
		rule.Write(w)
	}
}

// ReadList deserializes a rule list previously written with WriteList.
func ReadList(r *wire.Reader, table *fconame.Table) (*RuleList, error) {
	count := int(r.ReadUint32())
	list := NewList()
	for i := 0; i < count; i++ {
		rule, err := Read(r, table)
		if err != nil {
			return nil, err
		}
		if err := list.Insert(rule); err != nil {
			return nil, err
		}
	}
	return list, nil
}
