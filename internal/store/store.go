package store

import (
	"sort"
	"sync"
	"time"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// Series holds the active monthly series in memory, ordered by date.
type Series struct {
	mu      sync.RWMutex
	points  []model.SeriesPoint
	source  string
	version uint64
}

func NewSeries() *Series {
	return &Series{}
}

// Replace swaps in a new series, sorting it by date. It returns the new version.
func (s *Series) Replace(points []model.SeriesPoint, source string) uint64 {
	sorted := make([]model.SeriesPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = sorted
	s.source = source
	s.version++
	return s.version
}

// Snapshot returns a copy of the series with its source label and version.
func (s *Series) Snapshot() ([]model.SeriesPoint, string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SeriesPoint, len(s.points))
	copy(out, s.points)
	return out, s.source, s.version
}

// Len returns the number of points.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Tail returns a copy of the last n points, or all of them if there are fewer.
func (s *Series) Tail(n int) []model.SeriesPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.points) {
		n = len(s.points)
	}
	if n <= 0 {
		return nil
	}
	out := make([]model.SeriesPoint, n)
	copy(out, s.points[len(s.points)-n:])
	return out
}

// TimeRange returns the first and last dates of the series.
func (s *Series) TimeRange() (start, end time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.points[0].Date, s.points[len(s.points)-1].Date, true
}

// InRange returns points with start <= date < end.
func (s *Series) InRange(start, end time.Time) []model.SeriesPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(start)
	})
	hi := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(end)
	})
	if lo >= hi {
		return nil
	}
	out := make([]model.SeriesPoint, hi-lo)
	copy(out, s.points[lo:hi])
	return out
}
