package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waktsa/elearning/internal/cache"
	"github.com/waktsa/elearning/internal/domain/course"
)

type CoursesStore interface {
	Create(ctx context.Context, req course.CourseRequest) (course.Course, error)
	List(ctx context.Context, f course.Filter) ([]course.Course, error)
	Update(ctx context.Context, id int64, req course.CourseRequest) (course.Course, error)
	Delete(ctx context.Context, id int64) error
}

type CoursesHandler struct {
	repo  CoursesStore
	cache cache.CourseLists
}

func NewCoursesHandler(repo CoursesStore) *CoursesHandler {
	return &CoursesHandler{repo: repo}
}

func NewCoursesHandlerWithCache(repo CoursesStore, c cache.CourseLists) *CoursesHandler {
	return &CoursesHandler{repo: repo, cache: c}
}

func (h *CoursesHandler) ListCourses(ctx *gin.Context) {
	h.respondList(ctx, course.Filter{})
}

// FilterCourses serves /course/:query where query is a category or a grade.
func (h *CoursesHandler) FilterCourses(ctx *gin.Context) {
	f, err := course.ParseFilter(ctx.Param("query"))
	if err != nil {
		RespondError(ctx, http.StatusNotFound, "invalid_filter",
			"Query must be a category (science, math, ict) or a grade (6, 8, 10, 12)", nil)
		return
	}

	h.respondList(ctx, f)
}

func (h *CoursesHandler) respondList(ctx *gin.Context, f course.Filter) {
	key := f.CacheKey()

	// gen is read before the store so a concurrent write invalidates this fill
	var gen cache.Generation
	if h.cache != nil {
		cached, g, ok := h.cache.Get(ctx.Request.Context(), key)
		if ok {
			RespondJSONWithETag(ctx, http.StatusOK, cached)
			return
		}
		gen = g
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	courses, err := h.repo.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list courses", err)
		return
	}
	if courses == nil {
		courses = []course.Course{}
	}

	if h.cache != nil {
		h.cache.Set(ctx.Request.Context(), key, gen, courses)
	}

	RespondJSONWithETag(ctx, http.StatusOK, courses)
}

func (h *CoursesHandler) CreateCourse(ctx *gin.Context) {
	var req course.CourseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := h.repo.Create(cctx, req)
	if err != nil {
		RespondInternal(ctx, "Could not create course", err)
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Course uploaded successfully",
		"id":      c.ID,
		"course":  c,
	})
}

func (h *CoursesHandler) UpdateCourse(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req course.CourseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := h.repo.Update(cctx, id, req)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "The course with id="+strconv.FormatInt(id, 10)+" doesn't exist")
			return
		}
		RespondInternal(ctx, "Could not update course", err)
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Course updated",
		"course":  c,
	})
}

func (h *CoursesHandler) DeleteCourse(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not delete course", err)
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Course removed"})
}

func (h *CoursesHandler) invalidate(ctx *gin.Context) {
	if h.cache == nil {
		return
	}

	if err := h.cache.Invalidate(ctx.Request.Context()); err != nil {
		slog.Default().WarnContext(ctx.Request.Context(), "course_cache_invalidate_failed", "err", err)
	}
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid id", gin.H{"id": ctx.Param("id")})
		return 0, false
	}
	return id, true
}
