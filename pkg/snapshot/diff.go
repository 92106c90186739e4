package snapshot

import "github.com/devicelab-dev/droidscan/pkg/hierarchy"

// Diff compares two fetches by widget identity.
type Diff struct {
	Added   []*hierarchy.Widget // in after, not in before
	Removed []*hierarchy.Widget // in before, not in after
	Kept    []*hierarchy.Widget // in both; the after version
}

// Compare matches widgets by XpathHash. Each list keeps the order of the
// slice it was taken from.
func Compare(before, after []*hierarchy.Widget) Diff {
	old := make(map[int32]struct{}, len(before))
	for _, w := range before {
		old[w.XpathHash] = struct{}{}
	}
	cur := make(map[int32]struct{}, len(after))
	for _, w := range after {
		cur[w.XpathHash] = struct{}{}
	}

	var d Diff
	for _, w := range after {
		if _, ok := old[w.XpathHash]; ok {
			d.Kept = append(d.Kept, w)
		} else {
			d.Added = append(d.Added, w)
		}
	}
	for _, w := range before {
		if _, ok := cur[w.XpathHash]; !ok {
			d.Removed = append(d.Removed, w)
		}
	}
	return d
}

// Changed reports whether any widget appeared or disappeared.
func (d Diff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}
