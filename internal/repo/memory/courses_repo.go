package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/waktsa/elearning/internal/domain/course"
)

type CoursesRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]course.Course
}

func NewCoursesRepo() *CoursesRepo {
	return &CoursesRepo{
		items: make(map[int64]course.Course),
	}
}

func (r *CoursesRepo) Create(_ context.Context, req course.CourseRequest) (course.Course, error) {
	c := course.NewFromRequest(req, time.Now().UTC())

	r.mu.Lock()
	r.nextID++
	c.ID = r.nextID
	r.items[c.ID] = c
	r.mu.Unlock()

	return c, nil
}

func (r *CoursesRepo) List(_ context.Context, f course.Filter) ([]course.Course, error) {
	r.mu.RLock()
	out := make([]course.Course, 0, len(r.items))
	for _, c := range r.items {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *CoursesRepo) Update(_ context.Context, id int64, req course.CourseRequest) (course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	updated := course.NewFromRequest(req, time.Now().UTC())
	updated.ID = id
	updated.CreatedAt = existing.CreatedAt
	r.items[id] = updated

	return updated, nil
}

func (r *CoursesRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return course.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
