package viewer

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/report"
)

// summaryProps is the fixed, small set of properties SUMMARY_ONLY shows
// inline, chosen because they are the properties most likely to explain
// why an object was flagged (spec §4.12 describes SUMMARY_ONLY as "the
// handful of properties most likely to explain a change" without
// pinning the set, so it is fixed here rather than left ad hoc).
var summaryProps = []propid.Index{propid.Size, propid.MTime}

// Renderer renders reports and databases as text at a fixed Level.
type Renderer struct {
	// Level controls how much detail is rendered.
	Level Level
	// Color enables fatih/color status coloring. New auto-detects this
	// from out when out is a *os.File attached to a terminal.
	Color bool
	// HexHash selects hex (true) or base64 (false) rendering for hash
	// properties (spec §6: "hex vs base64 for hash rendering").
	HexHash bool

	out io.Writer
}

// New constructs a Renderer writing to out at the given level, with
// color auto-detected via go-isatty when out is a terminal.
func New(out io.Writer, level Level) *Renderer {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{Level: level, Color: useColor, HexHash: true, out: out}
}

func (r *Renderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

// renderValue renders a single property value, honoring HexHash for the
// KindHash variant; every other variant defers to Value.AsString.
func (r *Renderer) renderValue(v propvalue.Value) string {
	if v.Kind() == propvalue.KindHash && !r.HexHash {
		return base64.StdEncoding.EncodeToString(v.HashBytes())
	}
	return v.AsString()
}

func (r *Renderer) colorize(status string, text string) string {
	if !r.Color {
		return text
	}
	switch status {
	case "added":
		return color.GreenString("%s", text)
	case "removed":
		return color.RedString("%s", text)
	case "changed":
		return color.YellowString("%s", text)
	default:
		return text
	}
}

// statusChar is the SINGLE_LINE status glyph for each kind of entry.
func statusChar(status string) string {
	switch status {
	case "added":
		return "+"
	case "removed":
		return "-"
	case "changed":
		return "!"
	default:
		return "?"
	}
}

// renderPropValue renders idx's bare value on object, or "<unreadable>"
// if idx is not valid on object at all (distinct from a property that is
// valid but reads as Undefined, which AsString already renders).
func (r *Renderer) renderPropValue(object *fco.FCO, idx propid.Index) string {
	v, err := object.Get(idx)
	if err != nil {
		return "<unreadable>"
	}
	if idx == propid.MTime || idx == propid.ATime || idx == propid.CTime {
		if v.Kind() == propvalue.KindInt64 {
			return time.Unix(v.Int64Value(), 0).UTC().Format(time.RFC3339)
		}
	}
	return r.renderValue(v)
}

// renderProp renders idx's value on object as "name=value".
func (r *Renderer) renderProp(object *fco.FCO, idx propid.Index) string {
	return idx.String() + "=" + r.renderPropValue(object, idx)
}

// validProps returns the sorted property indices valid on object.
func validProps(object *fco.FCO) []propid.Index {
	var out []propid.Index
	for _, idx := range object.ValidMask().Bits() {
		out = append(out, propid.Index(idx))
	}
	return out
}

// RenderReport writes rep to the renderer's output at its configured
// Level (spec §4.12).
func (r *Renderer) RenderReport(rep *report.Report) error {
	for _, genre := range rep.Genres() {
		for _, spec := range rep.Specs(genre) {
			r.renderSpec(spec)
		}
	}
	if errs := rep.GlobalErrors().Errors(); len(errs) > 0 {
		r.printf("Errors:\n")
		for _, e := range errs {
			r.printf("\t%v\n", e)
		}
	}
	return nil
}

func (r *Renderer) renderSpec(spec *report.SpecReport) {
	if r.Level != SingleLine && r.Level != Parseable {
		name := spec.Attrs.Name
		if name == "" {
			name = RenderName(spec.Rule.StartPoint())
		}
		r.printf("Rule: %s (severity %d, %d objects scanned)\n", name, spec.Attrs.Severity, spec.ObjectsScanned())
	}

	for _, object := range spec.Added() {
		r.renderEntry("added", spec, object, nil, nil)
	}
	for _, object := range spec.Removed() {
		r.renderEntry("removed", spec, object, nil, nil)
	}
	for _, change := range spec.Changed() {
		r.renderEntry("changed", spec, change.Old, change.New, change.Mask)
	}
}

func (r *Renderer) ruleName(spec *report.SpecReport) string {
	if spec.Attrs.Name != "" {
		return spec.Attrs.Name
	}
	return RenderName(spec.Rule.StartPoint())
}

// renderEntry renders one added/removed/changed line (plus whatever
// per-property detail the Level calls for). For "changed" entries old
// is the stored FCO, fresh is the rescanned one, and mask is the set of
// properties that differ; for "added"/"removed" only old is non-nil and
// mask is nil.
func (r *Renderer) renderEntry(status string, spec *report.SpecReport, old, fresh *fco.FCO, mask *propvector.Vector) {
	name := RenderName(old.Name())
	line := r.colorize(status, statusChar(status)+" "+name)

	switch r.Level {
	case SingleLine:
		r.printf("%s\n", line)

	case Parseable:
		fields := []string{status, r.ruleName(spec), name}
		if status == "changed" {
			var changed []string
			for _, idx := range mask.Bits() {
				changed = append(changed, propid.Index(idx).String())
			}
			fields = append(fields, strings.Join(changed, ","))
		}
		r.printf("%s\n", strings.Join(fields, "|"))

	case SummaryOnly:
		subject := old
		if status == "changed" {
			subject = fresh
		}
		var extras []string
		for _, idx := range summaryProps {
			v, err := subject.Get(idx)
			if err != nil || v.Kind() == propvalue.KindUndefined {
				continue
			}
			if idx == propid.Size {
				extras = append(extras, "size="+humanize.Bytes(uint64(v.Int64Value())))
			} else if idx == propid.MTime {
				extras = append(extras, "mtime="+humanize.Time(time.Unix(v.Int64Value(), 0)))
			}
		}
		r.printf("%s  (%s)\n", line, strings.Join(extras, ", "))

	case Concise:
		r.printf("%s\n", line)
		if status == "changed" {
			for _, idx := range mask.Bits() {
				i := propid.Index(idx)
				r.printf("\t%s: %s -> %s\n", i, r.renderPropValue(old, i), r.renderPropValue(fresh, i))
			}
		} else {
			for _, idx := range validProps(old) {
				r.printf("\t%s\n", r.renderProp(old, idx))
			}
		}

	case Full:
		r.printf("%s\n", line)
		if status == "changed" {
			props := validProps(old)
			props = append(props, validProps(fresh)...)
			props = dedupeProps(props)
			for _, idx := range props {
				r.printf("\t%s: %s -> %s\n", idx, r.renderPropValue(old, idx), r.renderPropValue(fresh, idx))
			}
		} else {
			for _, idx := range validProps(old) {
				r.printf("\t%s\n", r.renderProp(old, idx))
			}
		}
	}
}

func dedupeProps(props []propid.Index) []propid.Index {
	seen := make(map[propid.Index]bool, len(props))
	out := props[:0]
	for _, p := range props {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RenderDatabase writes every recorded object in tree to the renderer's
// output, in pre-order, at its configured Level (spec §4.12's "print-db"
// front end).
func (r *Renderer) RenderDatabase(tree *database.Tree, table *fconame.Table, delim byte) error {
	database.Walk(tree, table, delim, func(name fconame.Name, object *fco.FCO) {
		line := RenderName(name)
		switch r.Level {
		case SingleLine, Parseable:
			r.printf("%s\n", line)
		case SummaryOnly:
			var extras []string
			for _, idx := range summaryProps {
				v, err := object.Get(idx)
				if err != nil || v.Kind() == propvalue.KindUndefined {
					continue
				}
				if idx == propid.Size {
					extras = append(extras, "size="+humanize.Bytes(uint64(v.Int64Value())))
				} else if idx == propid.MTime {
					extras = append(extras, "mtime="+humanize.Time(time.Unix(v.Int64Value(), 0)))
				}
			}
			r.printf("%s  (%s)\n", line, strings.Join(extras, ", "))
		default:
			r.printf("%s\n", line)
			for _, idx := range validProps(object) {
				r.printf("\t%s\n", r.renderProp(object, idx))
			}
		}
	})
	return nil
}
