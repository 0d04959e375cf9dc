package scan

import "sort"

// Detector tracks the previous snapshot and reports which files have settled
// across consecutive observations. It is owned by a single goroutine; the
// sync loop never shares it.
type Detector struct {
	prev Snapshot
}

// NewDetector returns a detector with no prior observation, so the first
// Observe call settles nothing regardless of tree contents.
func NewDetector() *Detector {
	return &Detector{}
}

// Observe compares the current snapshot against the previous one and returns
// the sorted relative paths whose size is identical in both. The current
// snapshot then becomes the previous one; the comparison baseline advances
// exactly once per call.
//
// Files absent from either snapshot drop out silently. A settled file keeps
// being reported on later observations until it leaves the tree.
func (d *Detector) Observe(current Snapshot) []string {
	var settled []string
	for rel, record := range current {
		if prev, ok := d.prev[rel]; ok && prev.Size == record.Size {
			settled = append(settled, rel)
		}
	}
	d.prev = current
	sort.Strings(settled)
	return settled
}

// Reset clears the previous snapshot. The loop calls it when the staging
// tree empties so stale observations never carry across idle periods.
func (d *Detector) Reset() {
	d.prev = nil
}
