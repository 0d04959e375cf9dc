package remote

// Batch selects what a Move call transfers: the entire staging tree, or an
// explicit subset of relative paths. The sync loop builds exactly one per
// transferring cycle.
type Batch struct {
	paths []string
	all   bool
}

// All returns a batch covering the entire staging tree.
func All() Batch {
	return Batch{all: true}
}

// Subset returns a batch covering exactly the given relative paths.
func Subset(paths []string) Batch {
	return Batch{paths: append([]string(nil), paths...)}
}

// IsAll reports whether the batch covers the whole tree.
func (b Batch) IsAll() bool { return b.all }

// Paths returns the subset paths; nil for a whole-tree batch.
func (b Batch) Paths() []string { return b.paths }

// Len returns the number of subset paths; zero for a whole-tree batch.
func (b Batch) Len() int { return len(b.paths) }
