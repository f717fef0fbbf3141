package showtimes

import (
	"math"
	"time"
)

type SwipePhase int

const (
	SwipeIdle SwipePhase = iota
	SwipeTracking
	SwipeCommitted
)

func (p SwipePhase) String() string {
	switch p {
	case SwipeTracking:
		return "tracking"
	case SwipeCommitted:
		return "committed"
	default:
		return "idle"
	}
}

// SwipeConfig holds the thresholds of a pointer surface. Distances share the
// unit of the coordinates fed to the tracker; Velocity is that unit per millisecond.
type SwipeConfig struct {
	LockDistance float64
	Distance     float64
	Velocity     float64
}

var (
	// PixelSwipe matches touch screens.
	PixelSwipe = SwipeConfig{LockDistance: 10, Distance: 80, Velocity: 0.4}
	// CellSwipe matches terminal mouse reports, measured in cells.
	CellSwipe = SwipeConfig{LockDistance: 2, Distance: 8, Velocity: 0.04}
)

// SwipeTracker is the dismiss gesture of a single card.
//
// A press arms the tracker. Horizontal travel past LockDistance that beats
// vertical travel starts tracking; vertical travel first disarms it (the
// user is scrolling). Releasing while tracking commits when the card moved
// farther than Distance or faster than Velocity, and resets otherwise.
type SwipeTracker struct {
	cfg SwipeConfig

	phase   SwipePhase
	armed   bool
	startX  float64
	startY  float64
	startAt time.Time
	offset  float64
	dir     int
}

func NewSwipeTracker(cfg SwipeConfig) *SwipeTracker {
	return &SwipeTracker{cfg: cfg}
}

func (s *SwipeTracker) Phase() SwipePhase { return s.phase }

// Offset is the current horizontal displacement while tracking.
func (s *SwipeTracker) Offset() float64 { return s.offset }

// Direction is -1 or 1 once committed, 0 otherwise.
func (s *SwipeTracker) Direction() int { return s.dir }

func (s *SwipeTracker) Down(x, y float64, at time.Time) {
	s.Reset()
	s.armed = true
	s.startX = x
	s.startY = y
	s.startAt = at
}

func (s *SwipeTracker) Move(x, y float64) {
	if !s.armed || s.phase == SwipeCommitted {
		return
	}
	dx := x - s.startX
	dy := y - s.startY
	if s.phase == SwipeIdle {
		if math.Abs(dy) > s.cfg.LockDistance && math.Abs(dy) >= math.Abs(dx) {
			s.armed = false
			return
		}
		if math.Abs(dx) <= s.cfg.LockDistance {
			return
		}
		if math.Abs(dx) <= math.Abs(dy) {
			s.armed = false
			return
		}
		s.phase = SwipeTracking
	}
	s.offset = dx
}

// Up ends the gesture and reports whether it committed to a dismiss.
func (s *SwipeTracker) Up(at time.Time) bool {
	if s.phase != SwipeTracking {
		s.Reset()
		return false
	}
	elapsed := float64(at.Sub(s.startAt)) / float64(time.Millisecond)
	if elapsed <= 0 {
		elapsed = 1
	}
	velocity := math.Abs(s.offset) / elapsed
	if math.Abs(s.offset) > s.cfg.Distance || velocity > s.cfg.Velocity {
		s.phase = SwipeCommitted
		s.armed = false
		s.dir = 1
		if s.offset < 0 {
			s.dir = -1
		}
		return true
	}
	s.Reset()
	return false
}

func (s *SwipeTracker) Cancel() {
	s.Reset()
}

func (s *SwipeTracker) Reset() {
	*s = SwipeTracker{cfg: s.cfg}
}
