package player

import (
	"slices"

	"github.com/keshon/modtune/internal/music/sources"
)

// Queue is a bounded FIFO of tracks. It is not safe for concurrent use;
// Player guards it.
type Queue struct {
	items []sources.Track
	max   int
}

func NewQueue(max int) *Queue {
	return &Queue{max: max}
}

// Push appends t and returns its 1-based position.
func (q *Queue) Push(t sources.Track) (int, error) {
	if q.max > 0 && len(q.items) >= q.max {
		return 0, ErrQueueFull
	}
	q.items = append(q.items, t)
	return len(q.items), nil
}

// Pop removes and returns the front track.
func (q *Queue) Pop() (sources.Track, bool) {
	if len(q.items) == 0 {
		return sources.Track{}, false
	}
	t := q.items[0]
	q.items[0] = sources.Track{}
	q.items = q.items[1:]
	return t, true
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Items() []sources.Track { return slices.Clone(q.items) }

func (q *Queue) Clear() { q.items = nil }
