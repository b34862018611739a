package payment

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("payment not found")
	ErrInvalidStatus = errors.New("invalid payment status transition")
	ErrFreeCourse    = errors.New("course is free; enroll directly")
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		GetPaymentByID(ctx context.Context, id string) (Payment, error)
		QueryUserPayments(ctx context.Context, userID string) ([]Payment, error)
		// UpdatePayment persists the payment's status, provider ref and UpdatedAt.
		UpdatePayment(ctx context.Context, pmt Payment) (Payment, error)
	}

	Service struct {
		repo     Repository
		crsSvc   *course.Service
		usrRepo  user.Repository
		notifSvc *notification.Service
		mailSvc  core.EmailService
		conf     *core.Config
		log      core.Logger
	}
)

func NewService(
	repo Repository,
	crsSvc *course.Service,
	usrRepo user.Repository,
	notifSvc *notification.Service,
	mailSvc core.EmailService,
	conf *core.Config,
	log core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		crsSvc:   crsSvc,
		usrRepo:  usrRepo,
		notifSvc: notifSvc,
		mailSvc:  mailSvc,
		conf:     conf,
		log:      log,
	}
}

// Create opens a pending payment for a published, paid course. The provider
// reference is opaque; real provider integration happens elsewhere.
func (svc *Service) Create(ctx context.Context, userID string, np NewPayment) (Payment, error) {
	crs, err := svc.crsSvc.GetByID(ctx, np.CourseID)
	if err != nil {
		return Payment{}, err
	}
	if !crs.IsPublished {
		return Payment{}, course.ErrNotPublished
	}
	if crs.IsFree() {
		return Payment{}, ErrFreeCourse
	}

	now := time.Now().UTC()
	return svc.repo.CreatePayment(ctx, Payment{
		UserID:      userID,
		CourseID:    crs.ID,
		AmountCents: crs.PriceCents,
		Currency:    crs.Currency,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Payment, error) {
	return svc.repo.QueryUserPayments(ctx, userID)
}

// Confirm marks a pending payment succeeded and activates the enrollment it
// paid for. Enrollment activation and the receipt notification are separate
// best-effort steps; a crash in between leaves a succeeded payment that an
// operator reconciles by re-running Confirm's follow-ups.
func (svc *Service) Confirm(ctx context.Context, id, providerRef string) (Payment, error) {
	pmt, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if pmt.Status != StatusPending {
		return Payment{}, ErrInvalidStatus
	}

	pmt.Status = StatusSucceeded
	pmt.ProviderRef = providerRef
	pmt.UpdatedAt = time.Now().UTC()
	if pmt, err = svc.repo.UpdatePayment(ctx, pmt); err != nil {
		return Payment{}, err
	}

	if _, err = svc.crsSvc.ActivateEnrollment(ctx, pmt.CourseID, pmt.UserID); err != nil && err != course.ErrAlreadyEnrolled {
		svc.log.Error(fmt.Sprintf("activating paid enrollment: payment=%s user=%s course=%s: %v", pmt.ID, pmt.UserID, pmt.CourseID, err), err)
	}
	svc.announceReceipt(ctx, pmt)
	return pmt, nil
}

// Fail marks a pending payment failed.
func (svc *Service) Fail(ctx context.Context, id string) (Payment, error) {
	pmt, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if pmt.Status != StatusPending {
		return Payment{}, ErrInvalidStatus
	}
	pmt.Status = StatusFailed
	pmt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePayment(ctx, pmt)
}

func (svc *Service) announceReceipt(ctx context.Context, pmt Payment) {
	if _, err := svc.notifSvc.Create(ctx, notification.Notification{
		UserID:     pmt.UserID,
		Title:      "Payment received",
		Message:    fmt.Sprintf("Your payment of %d %s was received.", pmt.AmountCents, pmt.Currency),
		Type:       notification.TypePaymentReceived,
		TargetLink: "/payments/" + pmt.ID,
	}); err != nil {
		svc.log.Warn(fmt.Sprintf("creating payment notification: payment=%s: %v", pmt.ID, err), err)
	}

	usr, err := svc.usrRepo.GetUserByID(ctx, pmt.UserID)
	if err != nil || usr.Email == "" {
		svc.log.Warn(fmt.Sprintf("resolving payer for email: payment=%s user=%s: %v", pmt.ID, pmt.UserID, err))
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Payment received",
		TemplateName: "payment-received",
		TemplateData: struct {
			User    user.User
			Payment Payment
		}{usr, pmt},
	})
}
