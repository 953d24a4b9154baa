// Package report formats verification results for people and for JSON
// consumers. Conflicts are grouped per competing mission in the order the
// detector produced them.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iancoleman/orderedmap"

	"github.com/signalsfoundry/airspace-deconfliction/core"
)

// DefaultMaxPerGroup is how many conflicts each group lists before eliding.
const DefaultMaxPerGroup = 3

// ConflictGroup holds every conflict against one competing mission.
type ConflictGroup struct {
	OtherID   string
	Conflicts []core.Conflict
}

// Group partitions conflicts by OtherID. Groups appear in first-encountered
// order and keep the input order within each group.
func Group(conflicts []core.Conflict) []ConflictGroup {
	var groups []ConflictGroup
	index := make(map[string]int)
	for _, c := range conflicts {
		i, ok := index[c.OtherID]
		if !ok {
			i = len(groups)
			index[c.OtherID] = i
			groups = append(groups, ConflictGroup{OtherID: c.OtherID})
		}
		groups[i].Conflicts = append(groups[i].Conflicts, c)
	}
	return groups
}

// Summary renders the approval text for a completed check.
func Summary(conflicts []core.Conflict, maxPerGroup int) string {
	if len(conflicts) == 0 {
		return "Mission APPROVED: No conflicts detected"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Mission DENIED: %d conflict(s) detected\n\n", len(conflicts))
	writeGroups(&b, conflicts, maxPerGroup)
	return strings.TrimSpace(b.String())
}

// ResultSummary renders res, distinguishing cancelled runs from approvals.
func ResultSummary(res core.Result, maxPerGroup int) string {
	if res.Status != core.StatusIncomplete {
		return Summary(res.Conflicts, maxPerGroup)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Mission verification INCOMPLETE: %d conflict(s) found before cancellation\n\n", len(res.Conflicts))
	writeGroups(&b, res.Conflicts, maxPerGroup)
	return strings.TrimSpace(b.String())
}

func writeGroups(b *strings.Builder, conflicts []core.Conflict, maxPerGroup int) {
	if maxPerGroup <= 0 {
		maxPerGroup = DefaultMaxPerGroup
	}
	for _, g := range Group(conflicts) {
		fmt.Fprintf(b, "Conflicts with %s:\n", g.OtherID)
		for i, c := range g.Conflicts {
			if i == maxPerGroup {
				break
			}
			fmt.Fprintf(b, "  %d. Time: %.1fs, Location: (%.1f, %.1f, %.1f), Distance: %.2fm\n",
				i+1, c.Time, c.Location.X, c.Location.Y, c.Location.Z, c.Distance)
		}
		if extra := len(g.Conflicts) - maxPerGroup; extra > 0 {
			fmt.Fprintf(b, "  ... and %d more conflicts\n", extra)
		}
		b.WriteString("\n")
	}
}

// Document builds the order-preserving JSON document for res. Groups are
// keyed by mission id in first-encountered order; each lists at most
// maxPerGroup conflicts plus the total.
func Document(primaryID string, res core.Result, maxPerGroup int) *orderedmap.OrderedMap {
	if maxPerGroup <= 0 {
		maxPerGroup = DefaultMaxPerGroup
	}
	doc := orderedmap.New()
	doc.SetEscapeHTML(false)
	doc.Set("primary_id", primaryID)
	doc.Set("status", res.Status.String())
	doc.Set("is_safe", res.IsSafe())
	doc.Set("samples", res.Samples)
	doc.Set("conflict_count", len(res.Conflicts))

	groups := orderedmap.New()
	groups.SetEscapeHTML(false)
	for _, g := range Group(res.Conflicts) {
		entry := orderedmap.New()
		entry.Set("total", len(g.Conflicts))
		shown := g.Conflicts
		if len(shown) > maxPerGroup {
			shown = shown[:maxPerGroup]
		}
		entry.Set("conflicts", core.Records(shown))
		groups.Set(g.OtherID, entry)
	}
	doc.Set("groups", groups)
	doc.Set("summary", ResultSummary(res, maxPerGroup))
	return doc
}

// JSON encodes Document with indentation.
func JSON(primaryID string, res core.Result, maxPerGroup int) ([]byte, error) {
	return json.MarshalIndent(Document(primaryID, res, maxPerGroup), "", "  ")
}
