package history

import "controlling_incubator/internal/models"

// DefaultMaxPoints is the chart window when none is configured.
const DefaultMaxPoints = 100

// Buffer is the temperature/humidity series consumed by the chart.
type Buffer struct {
	ring *Ring[models.HistoryPoint]
}

func NewBuffer(maxPoints int) *Buffer {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Buffer{ring: NewRing[models.HistoryPoint](maxPoints)}
}

// Append adds a point, evicting the oldest once the buffer is full.
func (b *Buffer) Append(p models.HistoryPoint) { b.ring.Add(p) }

// Snapshot returns a copy ordered oldest to newest.
func (b *Buffer) Snapshot() []models.HistoryPoint { return b.ring.Snapshot() }

// Last returns the most recent point.
func (b *Buffer) Last() (models.HistoryPoint, bool) { return b.ring.Last() }

func (b *Buffer) Len() int { return b.ring.Len() }

func (b *Buffer) MaxPoints() int { return b.ring.Capacity() }

// Clear drops all points.
func (b *Buffer) Clear() { b.ring.Drain() }
