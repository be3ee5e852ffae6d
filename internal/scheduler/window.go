package scheduler

import (
	"sort"
	"time"
)

// Window is a half-open interval [Start, End) of therapist time.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsValid reports whether the window covers a positive span.
func (w Window) IsValid() bool {
	return w.End.After(w.Start)
}

// Overlaps reports whether the window intersects [lo, hi).
func (w Window) Overlaps(lo, hi time.Time) bool {
	return w.Start.Before(hi) && w.End.After(lo)
}

// Clip restricts the window to [lo, hi). The second return value is false
// when nothing of the window survives.
func Clip(w Window, lo, hi time.Time) (Window, bool) {
	start := w.Start
	if start.Before(lo) {
		start = lo
	}
	end := w.End
	if end.After(hi) {
		end = hi
	}
	if !end.After(start) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

// ClipAll clips every window to [lo, hi), dropping the ones that vanish.
func ClipAll(windows []Window, lo, hi time.Time) []Window {
	clipped := make([]Window, 0, len(windows))
	for _, w := range windows {
		if c, ok := Clip(w, lo, hi); ok {
			clipped = append(clipped, c)
		}
	}
	return clipped
}

// SortWindows orders windows by start, then end, then leaves equal windows
// in place. Overlapping windows are preserved as-is, never merged.
func SortWindows(windows []Window) {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Start.Equal(windows[j].Start) {
			return windows[i].End.Before(windows[j].End)
		}
		return windows[i].Start.Before(windows[j].Start)
	})
}
