package viewer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/report"
)

// Entry is one flattened, checkable line of a report: an added or
// removed object, or a changed pair, together with the spec it belongs
// to. BuildChecklist and ParseChecklist both operate on slices of Entry
// so that a checklist's on-disk order exactly matches the in-memory
// order used to reconstruct a filtered report (spec §4.12).
type Entry struct {
	Status string // "added", "removed", or "changed"
	Spec   *report.SpecReport
	Old    *fco.FCO // the added or stored object; the old half of a change
	Fresh  *fco.FCO // non-nil only when Status == "changed"
	Mask   *propvector.Vector
	// Checked is the entry's state: true (default) unless cleared by an
	// edited checklist.
	Checked bool
}

// BuildChecklist flattens rep into a deterministic, checkable entry list
// in the same order RenderReport would print it, every entry checked by
// default (spec §4.12: "one checkbox marker per changed/added/removed
// entry (default checked)").
func BuildChecklist(rep *report.Report) []Entry {
	var out []Entry
	for _, genre := range rep.Genres() {
		for _, spec := range rep.Specs(genre) {
			for _, object := range spec.Added() {
				out = append(out, Entry{Status: "added", Spec: spec, Old: object, Checked: true})
			}
			for _, object := range spec.Removed() {
				out = append(out, Entry{Status: "removed", Spec: spec, Old: object, Checked: true})
			}
			for _, change := range spec.Changed() {
				out = append(out, Entry{Status: "changed", Spec: spec, Old: change.Old, Fresh: change.New, Mask: change.Mask, Checked: true})
			}
		}
	}
	return out
}

func ruleNameOf(spec *report.SpecReport) string {
	if spec.Attrs.Name != "" {
		return spec.Attrs.Name
	}
	return RenderName(spec.Rule.StartPoint())
}

// entryLine renders one checklist line, without its leading checkbox
// marker: "status|rule|name" or, for a changed entry,
// "status|rule|name|prop1,prop2".
func entryLine(e Entry) string {
	fields := []string{e.Status, ruleNameOf(e.Spec), RenderName(e.Old.Name())}
	if e.Status == "changed" {
		var changed []string
		for _, idx := range e.Mask.Bits() {
			changed = append(changed, propid.Index(idx).String())
		}
		fields = append(fields, strings.Join(changed, ","))
	}
	return strings.Join(fields, "|")
}

// WriteChecklist writes entries to out as an editable checklist file,
// one checkbox line per entry, in order.
func WriteChecklist(out io.Writer, entries []Entry) error {
	w := bufio.NewWriter(out)
	fmt.Fprintln(w, "# Edit the checkboxes below, then save and exit.")
	fmt.Fprintln(w, "# Clear a box (replace the x with a space) to drop that entry from the update.")
	fmt.Fprintln(w, "# Lines beginning with # are ignored; do not add, remove, or reorder entry lines.")
	for _, e := range entries {
		mark := " "
		if e.Checked {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s\n", mark, entryLine(e))
	}
	return w.Flush()
}

// ParseChecklist re-parses an edited checklist against the original
// entries, in order, returning a new slice with each entry's Checked
// field set from the edited text. Parsing is strict: any non-comment,
// non-blank line that is not a checkbox line matching its corresponding
// original entry's text (status/rule/name/mask unchanged) is an error,
// and no partial result is returned (spec §4.12: "any unrecognized line
// causes an error and no update is performed").
func ParseChecklist(in io.Reader, original []Entry) ([]Entry, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	result := make([]Entry, len(original))
	copy(result, original)

	next := 0
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.HasPrefix(trimmed, "[") {
			return nil, ferr.InteractiveParseError(line)
		}
		checked, rest, err := parseCheckbox(trimmed)
		if err != nil {
			return nil, ferr.InteractiveParseError(line)
		}
		if next >= len(original) {
			return nil, ferr.InteractiveParseError(line)
		}
		if rest != entryLine(original[next]) {
			return nil, ferr.InteractiveParseError(line)
		}
		result[next].Checked = checked
		next++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read edited checklist")
	}
	if next != len(original) {
		return nil, ferr.InteractiveParseError("checklist is missing one or more entries")
	}
	return result, nil
}

// parseCheckbox splits "[x] rest-of-line" into its checked flag and the
// remainder, erroring on anything else.
func parseCheckbox(line string) (bool, string, error) {
	if len(line) < 4 || line[0] != '[' || line[2] != ']' || line[3] != ' ' {
		return false, "", errors.New("malformed checkbox")
	}
	var checked bool
	switch line[1] {
	case 'x', 'X':
		checked = true
	case ' ':
		checked = false
	default:
		return false, "", errors.New("malformed checkbox marker")
	}
	return checked, line[4:], nil
}

// FilterReport reconstructs a Report containing only entries whose
// Checked field is true, preserving each spec's Rule/Attrs and every
// kept entry's original data. Specs left with no checked entries still
// appear (with empty added/removed/changed sets) so ObjectsScanned and
// per-rule error queues are never silently dropped.
func FilterReport(entries []Entry) *report.Report {
	out := report.New()
	specs := make(map[*report.SpecReport]*report.SpecReport)

	specFor := func(original *report.SpecReport) *report.SpecReport {
		if sr, ok := specs[original]; ok {
			return sr
		}
		sr := out.AddSpec(report.FilesystemGenre, original.Rule, original.Attrs)
		specs[original] = sr
		return sr
	}

	// Ensure every spec is represented even if every one of its entries
	// was unchecked, so ObjectsScanned survives the filter.
	seen := make(map[*report.SpecReport]bool)
	for _, e := range entries {
		if seen[e.Spec] {
			continue
		}
		seen[e.Spec] = true
		sr := specFor(e.Spec)
		for i := 0; i < e.Spec.ObjectsScanned(); i++ {
			sr.IncrementObjectsScanned()
		}
		for _, specErr := range e.Spec.Errors().Errors() {
			sr.Errors().AddError(specErr)
		}
	}

	for _, e := range entries {
		if !e.Checked {
			continue
		}
		sr := specFor(e.Spec)
		switch e.Status {
		case "added":
			sr.AddAdded(e.Old)
		case "removed":
			sr.AddRemoved(e.Old)
		case "changed":
			sr.AddChanged(e.Old, e.Fresh, e.Mask)
		}
	}
	return out
}

// resolveEditor returns the editor command to invoke, per $VISUAL,
// falling back to $EDITOR, falling back to "vi" (spec §12, grounded on
// original_source's twutil.cpp temp-file-plus-editor review loop).
func resolveEditor() string {
	if v := os.Getenv("VISUAL"); v != "" {
		return v
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}

// EditChecklist writes entries to a private temporary file, invokes the
// operator's editor on it, re-parses the result, and returns the
// filtered report the kept entries describe. The temporary file is
// created with mode bits that deny other users access and is removed
// before returning (spec §5: "created with mode bits that deny other
// users access").
func EditChecklist(entries []Entry) (*report.Report, error) {
	tmp, err := os.CreateTemp("", "fsentry-checklist-*.txt")
	if err != nil {
		return nil, errors.Wrap(err, "unable to create checklist temporary file")
	}
	path := tmp.Name()
	defer os.Remove(path)

	if err := os.Chmod(path, 0600); err != nil {
		tmp.Close()
		return nil, errors.Wrap(err, "unable to set checklist temporary file permissions")
	}
	if err := WriteChecklist(tmp, entries); err != nil {
		tmp.Close()
		return nil, errors.Wrap(err, "unable to write checklist")
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "unable to close checklist temporary file")
	}

	editor := resolveEditor()
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, ferr.InteractiveEditorFailed(err, editor)
	}

	edited, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to reopen edited checklist")
	}
	defer edited.Close()

	updated, err := ParseChecklist(edited, entries)
	if err != nil {
		return nil, err
	}
	return FilterReport(updated), nil
}
