package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
)

type courseRepository struct {
	courses     *courseTable
	enrollments *enrollmentTable
	reviews     *reviewTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{
		courses:     db.course,
		enrollments: db.enrollment,
		reviews:     db.review,
	}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	crs.ID = uuid.New().String()
	repo.courses.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	if crs, ok := repo.courses.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	for _, crs := range repo.courses.table {
		if crs.Slug == slug {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	courses := make([]course.Course, 0, len(repo.courses.table))
	for _, crs := range repo.courses.table {
		courses = append(courses, *crs)
	}

	if filter.Search != "" {
		var filtered []course.Course
		for _, crs := range courses {
			if strings.Contains(strings.ToLower(crs.Title), strings.ToLower(filter.Search)) ||
				strings.Contains(strings.ToLower(crs.Description), strings.ToLower(filter.Search)) {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.InstructorID != "" {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.InstructorID == filter.InstructorID {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.IsPublished != nil {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.IsPublished == *filter.IsPublished {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	if _, ok := repo.courses.table[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.courses.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	enr.ID = uuid.New().String()
	repo.enrollments.table[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, courseID, userID string) (course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	for _, enr := range repo.enrollments.table {
		if enr.CourseID == courseID && enr.UserID == userID {
			return *enr, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) UpdateEnrollmentActive(ctx context.Context, id string, isActive bool) (course.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	enr, ok := repo.enrollments.table[id]
	if !ok {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	enr.IsActive = isActive
	enr.UpdatedAt = time.Now().UTC()
	return *enr, nil
}

func (repo *courseRepository) QueryActiveEnrollments(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	var enrs []course.Enrollment
	for _, enr := range repo.enrollments.table {
		if enr.CourseID == courseID && enr.IsActive {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.Before(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *courseRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	var enrs []course.Enrollment
	for _, enr := range repo.enrollments.table {
		if enr.UserID == userID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *courseRepository) CreateReview(ctx context.Context, rev course.Review) (course.Review, error) {
	repo.reviews.Lock()
	defer repo.reviews.Unlock()

	rev.ID = uuid.New().String()
	repo.reviews.table[rev.ID] = &rev
	return rev, nil
}

func (repo *courseRepository) GetUserCourseReview(ctx context.Context, courseID, userID string) (course.Review, error) {
	repo.reviews.RLock()
	defer repo.reviews.RUnlock()

	for _, rev := range repo.reviews.table {
		if rev.CourseID == courseID && rev.UserID == userID {
			return *rev, nil
		}
	}
	return course.Review{}, course.ErrReviewNotFound
}

func (repo *courseRepository) QueryCourseReviews(ctx context.Context, courseID string) ([]course.Review, error) {
	repo.reviews.RLock()
	defer repo.reviews.RUnlock()

	var revs []course.Review
	for _, rev := range repo.reviews.table {
		if rev.CourseID == courseID {
			revs = append(revs, *rev)
		}
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].CreatedAt.After(revs[j].CreatedAt) })
	return revs, nil
}
