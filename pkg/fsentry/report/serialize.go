package report

import (
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

// Write serializes the report: for each genre (in first-seen order),
// for each spec (in insertion order), the rule, its added/removed/
// changed sections (each already in FCOName order), and its scanned
// object count. Error queues are not persisted: they are a run's
// diagnostic trail, not part of the signed artifact (spec §4.11's
// envelope wraps exactly this payload).
func (r *Report) Write(w *wire.Writer) {
	w.WriteUint32(uint32(len(r.genreOrder)))
	for _, genre := range r.genreOrder {
		w.WriteUint32(uint32(genre))
		specs := r.genres[genre].specs
		w.WriteUint32(uint32(len(specs)))
		for _, sr := range specs {
			sr.write(w)
		}
	}
}

func (sr *SpecReport) write(w *wire.Writer) {
	sr.Rule.Write(w)

	w.WriteString(sr.Attrs.Name)
	w.WriteUint32(uint32(sr.Attrs.Severity))

	added := sr.Added()
	w.WriteUint32(uint32(len(added)))
	for _, f := range added {
		f.Write(w)
	}

	removed := sr.Removed()
	w.WriteUint32(uint32(len(removed)))
	for _, f := range removed {
		f.Write(w)
	}

	changed := sr.Changed()
	w.WriteUint32(uint32(len(changed)))
	for _, c := range changed {
		c.Old.Write(w)
		c.New.Write(w)
		c.Mask.Write(w)
	}

	w.WriteUint32(uint32(sr.objectsScanned))
}

// Read deserializes a report previously written with Write, interning
// every name against table.
func Read(r *wire.Reader, table *fconame.Table, version uint32) (*Report, error) {
	report := New()

	numGenres := int(r.ReadUint32())
	for i := 0; i < numGenres; i++ {
		genre := Genre(r.ReadUint32())
		numSpecs := int(r.ReadUint32())
		for j := 0; j < numSpecs; j++ {
			if err := readSpec(r, table, version, genre, report); err != nil {
				return nil, err
			}
		}
	}
	return report, nil
}

func readSpec(r *wire.Reader, table *fconame.Table, version uint32, genre Genre, report *Report) error {
	rule, err := policy.Read(r, table)
	if err != nil {
		return err
	}

	name := r.ReadString()
	severity := int(r.ReadUint32())
	sr := report.AddSpec(genre, rule, policy.Attrs{Name: name, Severity: severity})

	numAdded := int(r.ReadUint32())
	for i := 0; i < numAdded; i++ {
		sr.AddAdded(fco.Read(r, table, version))
	}

	numRemoved := int(r.ReadUint32())
	for i := 0; i < numRemoved; i++ {
		sr.AddRemoved(fco.Read(r, table, version))
	}

	numChanged := int(r.ReadUint32())
	for i := 0; i < numChanged; i++ {
		old := fco.Read(r, table, version)
		latest := fco.Read(r, table, version)
		mask := propvector.Read(r)
		sr.AddChanged(old, latest, mask)
	}

	sr.objectsScanned = int(r.ReadUint32())
	return r.Err()
}
