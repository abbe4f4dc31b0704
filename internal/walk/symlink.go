package walk

import "sync"

// visitedDirs records the canonical path of every directory walked while
// following symlinks, so a linked cycle is entered at most once.
type visitedDirs struct {
	seen sync.Map
}

// first reports whether canonical has not been seen before, marking it seen.
func (v *visitedDirs) first(canonical string) bool {
	_, loaded := v.seen.LoadOrStore(canonical, struct{}{})
	return !loaded
}
