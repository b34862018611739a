package course

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
)

var (
	// errors
	ErrNotFound            = errors.New("course not found")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrReviewNotFound      = errors.New("review not found")
	ErrNotPublished        = errors.New("course is not published")
	ErrPaymentRequired     = errors.New("course requires payment")
	ErrAlreadyEnrolled     = errors.New("user is already enrolled in this course")
	ErrNotEnrolled         = errors.New("user is not enrolled in this course")
	ErrAlreadyReviewed     = errors.New("user has already reviewed this course")
	ErrNotCourseInstructor = errors.New("user is not the course instructor")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseBySlug(ctx context.Context, slug string) (Course, error)
		// FilterCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Title or Course.Description.
		FilterCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, courseID, userID string) (Enrollment, error)
		UpdateEnrollmentActive(ctx context.Context, id string, isActive bool) (Enrollment, error)
		// QueryActiveEnrollments resolves the audience of a course: all
		// enrollments with the active flag set.
		QueryActiveEnrollments(ctx context.Context, courseID string) ([]Enrollment, error)
		QueryUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error)

		CreateReview(ctx context.Context, rev Review) (Review, error)
		GetUserCourseReview(ctx context.Context, courseID, userID string) (Review, error)
		QueryCourseReviews(ctx context.Context, courseID string) ([]Review, error)
	}

	Service struct {
		repo     Repository
		usrRepo  user.Repository
		notifSvc *notification.Service
		mailSvc  core.EmailService
		conf     *core.Config
		log      core.Logger
	}
)

func NewService(
	repo Repository,
	usrRepo user.Repository,
	notifSvc *notification.Service,
	mailSvc core.EmailService,
	conf *core.Config,
	log core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		usrRepo:  usrRepo,
		notifSvc: notifSvc,
		mailSvc:  mailSvc,
		conf:     conf,
		log:      log,
	}
}

func (svc *Service) Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		InstructorID: instructorID,
		PriceCents:   nc.PriceCents,
		Currency:     nc.Currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	crs.Slug = Slugify(crs.Title)
	if _, err := svc.repo.GetCourseBySlug(ctx, crs.Slug); err == nil {
		// suffix with a short timestamp to keep slugs unique
		crs.Slug = fmt.Sprintf("%s-%d", crs.Slug, now.Unix()%100000)
	} else if err != ErrNotFound {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, crs)
}

// Publish makes the course visible and enrollable. Only its instructor may
// publish; pass an empty instructorID to skip the ownership check (admin).
func (svc *Service) Publish(ctx context.Context, courseID, instructorID string) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if instructorID != "" && crs.InstructorID != instructorID {
		return Course{}, ErrNotCourseInstructor
	}
	if crs.IsPublished {
		return crs, nil
	}
	crs.IsPublished = true
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourseBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	return svc.repo.FilterCourses(ctx, filter, ordering...)
}

// Enroll enrolls a user in a free published course. Paid courses are enrolled
// through a confirmed payment (see ActivateEnrollment).
func (svc *Service) Enroll(ctx context.Context, courseID, userID string) (Enrollment, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !crs.IsPublished {
		return Enrollment{}, ErrNotPublished
	}
	if !crs.IsFree() {
		return Enrollment{}, ErrPaymentRequired
	}
	return svc.activate(ctx, crs, userID)
}

// ActivateEnrollment creates or reactivates an enrollment regardless of the
// course price; the payment service calls it once a payment succeeds.
func (svc *Service) ActivateEnrollment(ctx context.Context, courseID, userID string) (Enrollment, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	return svc.activate(ctx, crs, userID)
}

func (svc *Service) activate(ctx context.Context, crs Course, userID string) (Enrollment, error) {
	now := time.Now().UTC()

	enr, err := svc.repo.GetEnrollment(ctx, crs.ID, userID)
	switch err {
	case nil:
		if enr.IsActive {
			return Enrollment{}, ErrAlreadyEnrolled
		}
		if enr, err = svc.repo.UpdateEnrollmentActive(ctx, enr.ID, true); err != nil {
			return Enrollment{}, err
		}
	case ErrEnrollmentNotFound:
		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			CourseID:  crs.ID,
			UserID:    userID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return Enrollment{}, err
		}
	default:
		return Enrollment{}, err
	}

	svc.announceEnrollment(ctx, crs, userID)
	return enr, nil
}

// announceEnrollment notifies and emails the new enrollee; both are best
// effort and never fail the enrollment itself.
func (svc *Service) announceEnrollment(ctx context.Context, crs Course, userID string) {
	if _, err := svc.notifSvc.Create(ctx, notification.Notification{
		UserID:     userID,
		Title:      "Enrollment confirmed",
		Message:    fmt.Sprintf("You are now enrolled in %q.", crs.Title),
		Type:       notification.TypeEnrollmentConfirmed,
		TargetLink: "/courses/" + crs.Slug,
	}); err != nil {
		svc.log.Warn(fmt.Sprintf("creating enrollment notification: user=%s course=%s: %v", userID, crs.ID, err), err)
	}

	usr, err := svc.usrRepo.GetUserByID(ctx, userID)
	if err != nil || usr.Email == "" {
		svc.log.Warn(fmt.Sprintf("resolving enrollee for email: user=%s course=%s: %v", userID, crs.ID, err))
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("You are enrolled in %s", crs.Title),
		TemplateName: "enrollment-confirmed",
		TemplateData: struct {
			User   user.User
			Course Course
		}{usr, crs},
	})
}

// Unenroll deactivates the user's enrollment; the record is kept for history.
func (svc *Service) Unenroll(ctx context.Context, courseID, userID string) error {
	enr, err := svc.repo.GetEnrollment(ctx, courseID, userID)
	if err != nil {
		if err == ErrEnrollmentNotFound {
			return ErrNotEnrolled
		}
		return err
	}
	if !enr.IsActive {
		return ErrNotEnrolled
	}
	_, err = svc.repo.UpdateEnrollmentActive(ctx, enr.ID, false)
	return err
}

func (svc *Service) ActiveEnrollments(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.repo.QueryActiveEnrollments(ctx, courseID)
}

func (svc *Service) UserEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryUserEnrollments(ctx, userID)
}

// AddReview records a review by an active enrollee; one review per user per course.
func (svc *Service) AddReview(ctx context.Context, courseID, userID string, nr NewReview) (Review, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Review{}, err
	}

	enr, err := svc.repo.GetEnrollment(ctx, courseID, userID)
	if err != nil {
		if err == ErrEnrollmentNotFound {
			return Review{}, ErrNotEnrolled
		}
		return Review{}, err
	}
	if !enr.IsActive {
		return Review{}, ErrNotEnrolled
	}

	if _, err = svc.repo.GetUserCourseReview(ctx, courseID, userID); err == nil {
		return Review{}, ErrAlreadyReviewed
	} else if err != ErrReviewNotFound {
		return Review{}, err
	}

	rev, err := svc.repo.CreateReview(ctx, Review{
		CourseID:  courseID,
		UserID:    userID,
		Rating:    nr.Rating,
		Comment:   nr.Comment,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Review{}, err
	}

	// heads-up for the instructor; best effort
	if _, err = svc.notifSvc.Create(ctx, notification.Notification{
		UserID:     crs.InstructorID,
		Title:      "New course review",
		Message:    fmt.Sprintf("%q received a %d-star review.", crs.Title, rev.Rating),
		Type:       notification.TypeNewReview,
		TargetLink: "/courses/" + crs.Slug,
	}); err != nil {
		svc.log.Warn(fmt.Sprintf("creating review notification: course=%s: %v", crs.ID, err), err)
	}
	return rev, nil
}

func (svc *Service) Reviews(ctx context.Context, courseID string) ([]Review, error) {
	return svc.repo.QueryCourseReviews(ctx, courseID)
}

// Rating returns the average rating and review count of a course.
func (svc *Service) Rating(ctx context.Context, courseID string) (float64, int, error) {
	revs, err := svc.repo.QueryCourseReviews(ctx, courseID)
	if err != nil {
		return 0, 0, err
	}
	if len(revs) == 0 {
		return 0, 0, nil
	}
	var sum int
	for _, rev := range revs {
		sum += rev.Rating
	}
	return float64(sum) / float64(len(revs)), len(revs), nil
}
