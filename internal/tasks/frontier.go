package tasks

// Frontier is a work list that yields each key at most once.
//
// Recursive expansions (mod dependencies, installer processors) push what they discover and loop
// until the frontier is empty, instead of enqueueing work from inside a running task.
type Frontier[K comparable] struct {
	pending []K
	visited map[K]struct{}
}

// NewFrontier creates a frontier seeded with keys.
func NewFrontier[K comparable](keys ...K) *Frontier[K] {
	f := &Frontier[K]{visited: make(map[K]struct{})}
	f.Push(keys...)
	return f
}

// Push adds keys that were never pushed before and reports how many were added.
func (f *Frontier[K]) Push(keys ...K) int {
	added := 0
	for _, k := range keys {
		if _, seen := f.visited[k]; seen {
			continue
		}
		f.visited[k] = struct{}{}
		f.pending = append(f.pending, k)
		added++
	}
	return added
}

// Pop removes the oldest pending key.
func (f *Frontier[K]) Pop() (K, bool) {
	var zero K
	if len(f.pending) == 0 {
		return zero, false
	}
	k := f.pending[0]
	f.pending = f.pending[1:]
	return k, true
}

// Visit marks k as seen without queueing it.
func (f *Frontier[K]) Visit(k K) {
	f.visited[k] = struct{}{}
}

// Seen reports whether k was ever pushed or visited.
func (f *Frontier[K]) Seen(k K) bool {
	_, ok := f.visited[k]
	return ok
}

// Len returns the number of pending keys.
func (f *Frontier[K]) Len() int {
	return len(f.pending)
}
