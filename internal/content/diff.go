package content

import "sort"

// Diff is the result of comparing two fingerprint maps. The slices carry no
// implied order; callers sort for display only.
type Diff struct {
	Changed []string
	Added   []string
	Removed []string
}

// Empty reports whether nothing changed between the two fingerprint maps.
func (d Diff) Empty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// ChangedOrAdded returns the union of changed and added paths.
func (d Diff) ChangedOrAdded() []string {
	union := make([]string, 0, len(d.Changed)+len(d.Added))
	union = append(union, d.Changed...)
	union = append(union, d.Added...)
	return union
}

// Sorted returns a copy of the diff with every slice sorted, for display.
func (d Diff) Sorted() Diff {
	s := Diff{
		Changed: append([]string(nil), d.Changed...),
		Added:   append([]string(nil), d.Added...),
		Removed: append([]string(nil), d.Removed...),
	}
	sort.Strings(s.Changed)
	sort.Strings(s.Added)
	sort.Strings(s.Removed)
	return s
}

// Compare computes the set difference between two fingerprint maps. A path
// present in both with a different hash is changed, present only in new is
// added, present only in old is removed. Pure function, no side effects.
func Compare(oldHashes, newHashes map[string]string) Diff {
	var d Diff
	for p, newHash := range newHashes {
		oldHash, ok := oldHashes[p]
		if !ok {
			d.Added = append(d.Added, p)
			continue
		}
		if oldHash != newHash {
			d.Changed = append(d.Changed, p)
		}
	}
	for p := range oldHashes {
		if _, ok := newHashes[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	return d
}
