package wl

import "sync"

// Sensitivity scales pointer movement into window changes
type Sensitivity struct {
	Width  float64 `yaml:"width"`
	Center float64 `yaml:"center"`
}

// DefaultSensitivity moves one raw unit per pixel of drag
var DefaultSensitivity = Sensitivity{Width: 1.0, Center: 1.0}

// State holds the default window derived from the image source and the current,
// user-adjusted window. Every mutator clamps the width to MinWidth.
type State struct {
	def WindowLevel
	cur WindowLevel
}

// NewState starts with current == default
func NewState(def WindowLevel) *State {
	def = def.Clamped()
	return &State{def: def, cur: def}
}

// Current returns the window used for rendering
func (s *State) Current() WindowLevel {
	return s.cur
}

// Default returns the window the state resets to
func (s *State) Default() WindowLevel {
	return s.def
}

// Set replaces the current window
func (s *State) Set(w WindowLevel) WindowLevel {
	s.cur = w.Clamped()
	return s.cur
}

// SetCenter changes only the center (brightness)
func (s *State) SetCenter(center float64) WindowLevel {
	return s.Set(WindowLevel{Center: center, Width: s.cur.Width})
}

// SetWidth changes only the width (contrast)
func (s *State) SetWidth(width float64) WindowLevel {
	return s.Set(WindowLevel{Center: s.cur.Center, Width: width})
}

// Drag applies a pointer delta: horizontal movement widens the window,
// vertical movement lowers the center (moving up brightens).
func (s *State) Drag(dx, dy float64, sens Sensitivity) WindowLevel {
	return s.Set(WindowLevel{
		Center: s.cur.Center - dy*sens.Center,
		Width:  s.cur.Width + dx*sens.Width,
	})
}

// Reset restores the default window
func (s *State) Reset() WindowLevel {
	s.cur = s.def
	return s.cur
}

// IsModified reports whether the current window differs from the default
func (s *State) IsModified() bool {
	return s.cur != s.def
}

// Update is a single parameter change produced by the host event loop
type Update func(s *State) WindowLevel

// SetTo returns an Update replacing the whole window
func SetTo(w WindowLevel) Update {
	return func(s *State) WindowLevel { return s.Set(w) }
}

// CenterTo returns an Update for a brightness slider
func CenterTo(center float64) Update {
	return func(s *State) WindowLevel { return s.SetCenter(center) }
}

// WidthTo returns an Update for a contrast slider
func WidthTo(width float64) Update {
	return func(s *State) WindowLevel { return s.SetWidth(width) }
}

// DragBy returns an Update for a pointer drag
func DragBy(dx, dy float64, sens Sensitivity) Update {
	return func(s *State) WindowLevel { return s.Drag(dx, dy, sens) }
}

// ResetTo returns an Update restoring the default window
func ResetTo() Update {
	return func(s *State) WindowLevel { return s.Reset() }
}

// Queue collects updates in arrival order until the next render drains them.
// Push is safe to call from any goroutine; Drain runs on the render thread.
type Queue struct {
	mu      sync.Mutex
	pending []Update
}

// Push records an update
func (q *Queue) Push(u Update) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, u)
}

// Len returns the number of pending updates
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain applies all pending updates in order and returns the resulting window and
// whether anything changed. Only the final value matters for rendering.
func (q *Queue) Drain(s *State) (WindowLevel, bool) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	before := s.Current()
	for _, u := range pending {
		u(s)
	}
	return s.Current(), s.Current() != before
}
