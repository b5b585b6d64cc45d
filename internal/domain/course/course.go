package course

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	CourseURL   string    `json:"course_url"`
	Category    string    `json:"category"`
	Grade       int       `json:"grade"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var ErrNotFound = errors.New("course not found")

var (
	Categories = []string{"science", "math", "ict"}
	Grades     = []int{6, 8, 10, 12}
)

// Create and update share one full payload; there is no partial update.
type CourseRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"required,min=1"`
	Author      string `json:"author" binding:"required,min=1,max=100"`
	CourseURL   string `json:"course_url" binding:"required,url"`
	Category    string `json:"category" binding:"required,oneof=science math ict"`
	Grade       int    `json:"grade" binding:"required,oneof=6 8 10 12"`
}

// Filter narrows a listing to one category or one grade. The zero value lists
// everything.
type Filter struct {
	Category string
	Grade    int
}

var ErrInvalidFilter = errors.New("invalid course filter")

// ParseFilter accepts either a category name (case-insensitive) or a grade.
func ParseFilter(query string) (Filter, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, c := range Categories {
		if q == c {
			return Filter{Category: c}, nil
		}
	}

	if n, err := strconv.Atoi(q); err == nil {
		for _, g := range Grades {
			if n == g {
				return Filter{Grade: g}, nil
			}
		}
	}

	return Filter{}, ErrInvalidFilter
}

func (f Filter) Matches(c Course) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Grade != 0 && c.Grade != f.Grade {
		return false
	}
	return true
}

// CacheKey identifies the listing in the course cache.
func (f Filter) CacheKey() string {
	return "courses:list:v1:category=" + f.Category + ":grade=" + strconv.Itoa(f.Grade)
}

func NewFromRequest(req CourseRequest, now time.Time) Course {
	return Course{
		Title:       req.Title,
		Description: req.Description,
		Author:      req.Author,
		CourseURL:   req.CourseURL,
		Category:    req.Category,
		Grade:       req.Grade,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
