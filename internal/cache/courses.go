package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/waktsa/elearning/internal/domain/course"
)

// Generation identifies the cache contents between two invalidations. Get
// reports the generation it read from, and Set only stores a listing under the
// generation its caller observed, so a listing read from the store before an
// Invalidate can never be served after it.
type Generation int64

// unknownGeneration is returned when the generation could not be read; Set
// ignores it.
const unknownGeneration Generation = -1

// CourseLists caches course listings keyed by course.Filter.CacheKey.
// Any course write must call Invalidate.
type CourseLists interface {
	Get(ctx context.Context, key string) ([]course.Course, Generation, bool)
	Set(ctx context.Context, key string, gen Generation, courses []course.Course)
	Invalidate(ctx context.Context) error
}

// MemoryCourseLists copies on the way in and out so handlers can never alias
// a cached listing.
type MemoryCourseLists struct {
	mu  sync.Mutex
	gen Generation
	c   *Cache[[]course.Course]
}

func NewMemoryCourseLists(ttl time.Duration) *MemoryCourseLists {
	return &MemoryCourseLists{c: New[[]course.Course](ttl)}
}

func (m *MemoryCourseLists) Get(_ context.Context, key string) ([]course.Course, Generation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	courses, ok := m.c.Get(key)
	if !ok {
		return nil, m.gen, false
	}
	return slices.Clone(courses), m.gen, true
}

func (m *MemoryCourseLists) Set(_ context.Context, key string, gen Generation, courses []course.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	m.c.Set(key, slices.Clone(courses))
}

func (m *MemoryCourseLists) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.c.Flush()
	return nil
}
