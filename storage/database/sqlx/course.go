package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
)

type courseRow struct {
	ID           string      `db:"id"`
	Title        null.String `db:"title"`
	Slug         null.String `db:"slug"`
	Description  null.String `db:"description"`
	InstructorID null.String `db:"instructor_id"`
	PriceCents   int         `db:"price_cents"`
	Currency     null.String `db:"currency"`
	IsPublished  bool        `db:"is_published"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:           r.ID,
		Title:        r.Title.String,
		Slug:         r.Slug.String,
		Description:  r.Description.String,
		InstructorID: r.InstructorID.String,
		PriceCents:   r.PriceCents,
		Currency:     r.Currency.String,
		IsPublished:  r.IsPublished,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func newCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:           crs.ID,
		Title:        null.NewString(crs.Title, crs.Title != ""),
		Slug:         null.NewString(crs.Slug, crs.Slug != ""),
		Description:  null.NewString(crs.Description, crs.Description != ""),
		InstructorID: null.NewString(crs.InstructorID, crs.InstructorID != ""),
		PriceCents:   crs.PriceCents,
		Currency:     null.NewString(crs.Currency, crs.Currency != ""),
		IsPublished:  crs.IsPublished,
		CreatedAt:    null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	}
}

type enrollmentRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	UserID    string    `db:"user_id"`
	IsActive  bool      `db:"is_active"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

func (r enrollmentRow) toEnrollment() course.Enrollment {
	return course.Enrollment{
		ID:        r.ID,
		CourseID:  r.CourseID,
		UserID:    r.UserID,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

type reviewRow struct {
	ID        string      `db:"id"`
	CourseID  string      `db:"course_id"`
	UserID    string      `db:"user_id"`
	Rating    int         `db:"rating"`
	Comment   null.String `db:"comment"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r reviewRow) toReview() course.Review {
	return course.Review{
		ID:        r.ID,
		CourseID:  r.CourseID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment.String,
		CreatedAt: r.CreatedAt.Time,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return core.NewPersistenceError(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := newCourseRow(crs)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO course (id, title, slug, description, instructor_id, price_cents, currency, is_published, created_at, updated_at)
		VALUES (:id, :title, :slug, :description, :instructor_id, :price_cents, :currency, :is_published, :created_at, :updated_at)`,
		row)
	if err != nil {
		return course.Course{}, core.NewPersistenceError(err, "inserting course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrNotFound, "finding course by ID")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE slug = $1`, slug); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrNotFound, "finding course by slug")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	var conds []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		val := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", val))
	}
	if filter.InstructorID != "" {
		conds = append(conds, "instructor_id = "+arg(filter.InstructorID))
	}
	if filter.IsPublished != nil {
		conds = append(conds, "is_published = "+arg(*filter.IsPublished))
	}

	q := `SELECT * FROM course`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		q += " ORDER BY created_at DESC"
	}

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, core.NewPersistenceError(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := newCourseRow(crs)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE course
		SET title = :title, slug = :slug, description = :description, price_cents = :price_cents,
			currency = :currency, is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return course.Course{}, core.NewPersistenceError(err, "updating course")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return row.toCourse(), nil
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	enr.ID = uuid.New().String()
	row := enrollmentRow{
		ID:        enr.ID,
		CourseID:  enr.CourseID,
		UserID:    enr.UserID,
		IsActive:  enr.IsActive,
		CreatedAt: null.TimeFrom(enr.CreatedAt.UTC()),
		UpdatedAt: null.TimeFrom(enr.UpdatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, course_id, user_id, is_active, created_at, updated_at)
		VALUES (:id, :course_id, :user_id, :is_active, :created_at, :updated_at)`,
		row)
	if err != nil {
		return course.Enrollment{}, core.NewPersistenceError(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo courseRepository) GetEnrollment(ctx context.Context, courseID, userID string) (course.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE course_id = $1 AND user_id = $2`, courseID, userID)
	if err != nil {
		return course.Enrollment{}, repo.trapNoRowsErr(err, course.ErrEnrollmentNotFound, "finding enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo courseRepository) UpdateEnrollmentActive(ctx context.Context, id string, isActive bool) (course.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE enrollment SET is_active = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING *`,
		isActive, id)
	if err != nil {
		return course.Enrollment{}, repo.trapNoRowsErr(err, course.ErrEnrollmentNotFound, "updating enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo courseRepository) QueryActiveEnrollments(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM enrollment WHERE course_id = $1 AND is_active ORDER BY created_at`, courseID)
	if err != nil {
		return nil, core.NewPersistenceError(err, "querying active enrollments")
	}
	return repo.toEnrollments(rows), nil
}

func (repo courseRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM enrollment WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, core.NewPersistenceError(err, "querying user enrollments")
	}
	return repo.toEnrollments(rows), nil
}

func (repo courseRepository) toEnrollments(rows []enrollmentRow) []course.Enrollment {
	enrs := make([]course.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toEnrollment())
	}
	return enrs
}

func (repo courseRepository) CreateReview(ctx context.Context, rev course.Review) (course.Review, error) {
	rev.ID = uuid.New().String()
	row := reviewRow{
		ID:        rev.ID,
		CourseID:  rev.CourseID,
		UserID:    rev.UserID,
		Rating:    rev.Rating,
		Comment:   null.NewString(rev.Comment, rev.Comment != ""),
		CreatedAt: null.TimeFrom(rev.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO review (id, course_id, user_id, rating, comment, created_at)
		VALUES (:id, :course_id, :user_id, :rating, :comment, :created_at)`,
		row)
	if err != nil {
		return course.Review{}, core.NewPersistenceError(err, "inserting review")
	}
	return rev, nil
}

func (repo courseRepository) GetUserCourseReview(ctx context.Context, courseID, userID string) (course.Review, error) {
	var row reviewRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM review WHERE course_id = $1 AND user_id = $2`, courseID, userID)
	if err != nil {
		return course.Review{}, repo.trapNoRowsErr(err, course.ErrReviewNotFound, "finding review")
	}
	return row.toReview(), nil
}

func (repo courseRepository) QueryCourseReviews(ctx context.Context, courseID string) ([]course.Review, error) {
	var rows []reviewRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM review WHERE course_id = $1 ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, core.NewPersistenceError(err, "querying course reviews")
	}
	revs := make([]course.Review, 0, len(rows))
	for _, r := range rows {
		revs = append(revs, r.toReview())
	}
	return revs, nil
}
