package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/waktsa/elearning/internal/domain/course"
)

const courseColumns = `id, title, description, author, course_url, category, grade, created_at, updated_at`

type CoursesRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewCoursesRepo(pool *pgxpool.Pool, obs Observer) *CoursesRepo {
	return &CoursesRepo{
		pool: pool,
		obs:  observerOrNoop(obs),
	}
}

func scanCourse(row pgx.Row) (course.Course, error) {
	var c course.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Author, &c.CourseURL, &c.Category, &c.Grade, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CoursesRepo) Create(ctx context.Context, req course.CourseRequest) (course.Course, error) {
	var c course.Course

	err := r.obs.ObserveDB("courses.create", func() error {
		var err error
		c, err = scanCourse(r.pool.QueryRow(ctx,
			`INSERT INTO courses (title, description, author, course_url, category, grade)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING `+courseColumns,
			req.Title, req.Description, req.Author, req.CourseURL, req.Category, req.Grade,
		))
		return err
	})

	return c, err
}

func (r *CoursesRepo) List(ctx context.Context, f course.Filter) ([]course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`

	var conds []string
	var args []interface{}
	argsPosition := 1

	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", argsPosition))
		args = append(args, f.Category)
		argsPosition++
	}

	if f.Grade != 0 {
		conds = append(conds, fmt.Sprintf("grade = $%d", argsPosition))
		args = append(args, f.Grade)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY id ASC"

	var out []course.Course

	err := r.obs.ObserveDB("courses.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]course.Course, 0)
		for rows.Next() {
			c, err := scanCourse(rows)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CoursesRepo) Update(ctx context.Context, id int64, req course.CourseRequest) (course.Course, error) {
	var c course.Course

	err := r.obs.ObserveDB("courses.update", func() error {
		var err error
		c, err = scanCourse(r.pool.QueryRow(ctx,
			`UPDATE courses
			    SET title = $2,
			        description = $3,
			        author = $4,
			        course_url = $5,
			        category = $6,
			        grade = $7,
			        updated_at = NOW()
			  WHERE id = $1
			  RETURNING `+courseColumns,
			id, req.Title, req.Description, req.Author, req.CourseURL, req.Category, req.Grade,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, err
	}
	return c, nil
}

func (r *CoursesRepo) Delete(ctx context.Context, id int64) error {
	return r.obs.ObserveDB("courses.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return course.ErrNotFound
		}
		return nil
	})
}
