package integrity

import (
	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/report"
)

// Apply commits an accepted report's changes into a new database tree
// derived from tree, leaving tree itself untouched. Every mutation
// happens on a clone (database.Tree.Clone), so the caller's original
// tree is always left identical to its pre-update state regardless of
// what Apply does to the clone — the atomicity spec §4.9 asks for
// ("accumulated in memory and flushed in one commit") — and the caller
// decides whether to adopt the returned tree or discard it.
func Apply(tree *database.Tree, rep *report.Report) *database.Tree {
	next := tree.Clone()

	for _, genre := range rep.Genres() {
		for _, sr := range rep.Specs(genre) {
			for _, removedObject := range sr.Removed() {
				cursor := database.NewCursor(next)
				if cursor.SeekTo(removedObject.Name(), false) {
					cursor.DeleteFCO()
					cursor.RemoveEmptySubtree()
				}
			}
			for _, addedObject := range sr.Added() {
				cursor := database.NewCursor(next)
				cursor.SeekTo(addedObject.Name(), true)
				cursor.WriteFCO(addedObject)
			}
			for _, change := range sr.Changed() {
				cursor := database.NewCursor(next)
				cursor.SeekTo(change.New.Name(), true)
				cursor.WriteFCO(change.New)
			}
		}
	}

	return next
}
