package crawler

import "sync"

// Target is a URL waiting for, or claimed for, a fetch attempt.
// Targets are values and never change after creation.
type Target struct {
	// URL is the canonical URL.
	URL string

	// Depth is the number of link hops from the seed.
	Depth int
}

// Frontier is the FIFO queue of targets plus the visited set of one crawl.
//
// FIFO order makes the traversal breadth-first, so a target's depth is its
// graph distance from the seed. A URL is queued at most once and visited
// at most once; it becomes visited when it is claimed, not when it is
// pushed.
//
// All methods are safe for concurrent use. Claim is the only way the
// driver takes work, and it pops and marks visited under one lock, so two
// workers can never fetch the same URL.
type Frontier struct {
	mu sync.Mutex

	// queue holds pending targets; head indexes the next one.
	queue []Target
	head  int

	// queued holds URLs currently in the queue.
	queued map[string]struct{}

	// visited holds URLs claimed for fetching. It only grows.
	visited map[string]struct{}

	// maxDepth rejects deeper targets at push time.
	maxDepth int
}

// NewFrontier creates an empty frontier that rejects targets deeper than maxDepth.
func NewFrontier(maxDepth int) *Frontier {
	return &Frontier{
		queue:    make([]Target, 0),
		queued:   make(map[string]struct{}),
		visited:  make(map[string]struct{}),
		maxDepth: maxDepth,
	}
}

// Push enqueues url at depth.
// It reports false, without error, when the depth exceeds the limit or the
// URL is already queued or visited.
func (f *Frontier) Push(url string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if depth < 0 || depth > f.maxDepth {
		return false
	}
	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, ok := f.queued[url]; ok {
		return false
	}

	f.queue = append(f.queue, Target{URL: url, Depth: depth})
	f.queued[url] = struct{}{}
	return true
}

// Pop removes and returns the earliest pushed target without marking it
// visited. The driver uses Claim instead.
func (f *Frontier) Pop() (Target, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.popLocked()
}

// Claim pops targets until it finds one that is within the depth limit and
// not yet visited, marks it visited and returns it.
// It reports false when the queue is exhausted.
func (f *Frontier) Claim() (Target, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		t, ok := f.popLocked()
		if !ok {
			return Target{}, false
		}
		if t.Depth > f.maxDepth {
			continue
		}
		if _, seen := f.visited[t.URL]; seen {
			continue
		}
		f.visited[t.URL] = struct{}{}
		return t, true
	}
}

// popLocked removes the head of the queue. f.mu must be held.
func (f *Frontier) popLocked() (Target, bool) {
	if f.head >= len(f.queue) {
		return Target{}, false
	}

	t := f.queue[f.head]
	f.queue[f.head] = Target{}
	f.head++
	delete(f.queued, t.URL)

	// Reclaim the consumed prefix once it dominates the slice.
	if f.head > 64 && f.head*2 >= len(f.queue) {
		f.queue = append(make([]Target, 0, len(f.queue)-f.head), f.queue[f.head:]...)
		f.head = 0
	}

	return t, true
}

// IsEmpty reports whether no targets are waiting.
func (f *Frontier) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head >= len(f.queue)
}

// Len returns the number of waiting targets.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

// Visited reports whether url has been claimed.
func (f *Frontier) Visited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[url]
	return ok
}

// VisitedCount returns the number of claimed URLs.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
