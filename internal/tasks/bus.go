package tasks

import "sync"

// Progress reports how much of a runner's queue has been processed.
type Progress struct {
	RunnerID  string
	Completed int
	Failed    int
	Total     int
}

// Percent returns Completed/Total * 100, or 0 when nothing is queued.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// Bus delivers task events and progress on buffered channels.
//
// A child bus forwards everything it receives to its parent so nested runners surface progress to the
// top level. Sends never block: when a subscriber falls behind, updates are dropped.
// A nil *Bus accepts and discards everything.
type Bus struct {
	mu       sync.Mutex
	events   chan Event
	progress chan Progress
	updates  chan ProgressUpdate
	parent   *Bus
	closed   bool
}

// NewBus creates a root bus whose channels hold buffer entries each.
func NewBus(buffer int) *Bus {
	return &Bus{
		events:   make(chan Event, buffer),
		progress: make(chan Progress, buffer),
		updates:  make(chan ProgressUpdate, buffer),
	}
}

// Child creates a bus forwarding to b. A child of a nil bus is isolated.
func (b *Bus) Child() *Bus {
	c := NewBus(cap(b.chanOrNil()))
	c.parent = b
	return c
}

// Isolated creates a bus with no parent; nothing published on it reaches b.
func (b *Bus) Isolated() *Bus {
	return NewBus(cap(b.chanOrNil()))
}

func (b *Bus) chanOrNil() chan Event {
	if b == nil {
		return make(chan Event, 64)
	}
	return b.events
}

// Events returns the task event stream.
func (b *Bus) Events() <-chan Event { return b.events }

// Progress returns the runner progress stream.
func (b *Bus) Progress() <-chan Progress { return b.progress }

// Updates returns the phase update stream.
func (b *Bus) Updates() <-chan ProgressUpdate { return b.updates }

// PublishEvent sends e to b and its ancestors.
func (b *Bus) PublishEvent(e Event) {
	for bus := b; bus != nil; bus = bus.parent {
		bus.mu.Lock()
		if !bus.closed {
			select {
			case bus.events <- e:
			default:
			}
		}
		bus.mu.Unlock()
	}
}

// PublishProgress sends p to b and its ancestors.
func (b *Bus) PublishProgress(p Progress) {
	for bus := b; bus != nil; bus = bus.parent {
		bus.mu.Lock()
		if !bus.closed {
			select {
			case bus.progress <- p:
			default:
			}
		}
		bus.mu.Unlock()
	}
}

// PublishUpdate sends u to b and its ancestors.
func (b *Bus) PublishUpdate(u ProgressUpdate) {
	for bus := b; bus != nil; bus = bus.parent {
		bus.mu.Lock()
		if !bus.closed {
			select {
			case bus.updates <- u:
			default:
			}
		}
		bus.mu.Unlock()
	}
}

// Close closes b's channels. Later publishes to b are dropped; ancestors keep receiving them.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.events)
	close(b.progress)
	close(b.updates)
}
