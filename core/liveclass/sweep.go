package liveclass

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
)

// DefaultSweepLead is how far ahead the sweep looks for starting sessions
// when none is configured.
const DefaultSweepLead = 5 * time.Minute

type (
	// SessionOutcome reports what the sweep did for one candidate session.
	SessionOutcome struct {
		SessionID    string
		SessionTitle string
		Skipped      string // non-empty skip reason; counts below are zero
		Audience     int
		Notified     int
		Emailed      int
		Failures     int
	}

	// AnnouncementSummary aggregates one sweep run for operator visibility.
	AnnouncementSummary struct {
		RanAt    time.Time
		Sessions []SessionOutcome
		Audience int
		Notified int
		Emailed  int
		Failures int
	}

	// Sweep finds Scheduled sessions entering their start window and fans a
	// "starting soon" notification and email out to every active enrollee.
	// All collaborators are passed in explicitly; the sweep holds no state
	// between runs.
	Sweep struct {
		sessions Repository
		courses  course.Repository
		users    user.Repository
		notifs   notification.Repository
		mailSvc  core.EmailService
		conf     *core.Config
		log      core.Logger
	}
)

func (s *AnnouncementSummary) add(out SessionOutcome) {
	s.Sessions = append(s.Sessions, out)
	s.Audience += out.Audience
	s.Notified += out.Notified
	s.Emailed += out.Emailed
	s.Failures += out.Failures
}

func (s AnnouncementSummary) String() string {
	return fmt.Sprintf(
		"sweep: sessions=%d audience=%d notified=%d emailed=%d failures=%d",
		len(s.Sessions), s.Audience, s.Notified, s.Emailed, s.Failures,
	)
}

func NewSweep(
	sessions Repository,
	courses course.Repository,
	users user.Repository,
	notifs notification.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
	log core.Logger,
) *Sweep {
	return &Sweep{
		sessions: sessions,
		courses:  courses,
		users:    users,
		notifs:   notifs,
		mailSvc:  mailSvc,
		conf:     conf,
		log:      log,
	}
}

func (s *Sweep) lead() time.Duration {
	if s.conf.Sweep.Lead > 0 {
		return s.conf.Sweep.Lead
	}
	return DefaultSweepLead
}

// Run executes one sweep at the given instant. It never fails: every error is
// logged and folded into the summary, so a scheduler can call it blindly on a
// ticker. A session is announced at most once across runs; the existence of
// any starting notification targeting it suppresses re-announcement (session
// granularity — enrollees added after the announcement are not caught up).
func (s *Sweep) Run(ctx context.Context, now time.Time) AnnouncementSummary {
	summary := AnnouncementSummary{RanAt: now}

	sessions, err := s.sessions.QueryStartingSessions(ctx, now, now.Add(s.lead()))
	if err != nil {
		s.log.Error(fmt.Sprintf("sweep: querying starting sessions: %v", err), err)
		return summary
	}

	for _, sess := range sessions {
		summary.add(s.announce(ctx, sess))
	}
	return summary
}

func (s *Sweep) announce(ctx context.Context, sess Session) SessionOutcome {
	out := SessionOutcome{SessionID: sess.ID, SessionTitle: sess.Title}
	target := notification.LiveClassTarget(sess.ID)

	// dedup guard: any prior announcement for this session wins
	exists, err := s.notifs.NotificationExists(ctx, notification.TypeLiveClassStarting, target)
	if err != nil {
		s.log.Warn(fmt.Sprintf("sweep: checking dedup guard: session=%s: %v", sess.ID, err), err)
		out.Skipped = "dedup check failed"
		return out
	}
	if exists {
		out.Skipped = "already announced"
		s.log.Debug(fmt.Sprintf("sweep: session=%s already announced", sess.ID))
		return out
	}

	crs, err := s.courses.GetCourseByID(ctx, sess.CourseID)
	if err != nil {
		s.log.Warn(fmt.Sprintf("sweep: resolving course: session=%s course=%s: %v", sess.ID, sess.CourseID, err), err)
		out.Skipped = "course not resolved"
		return out
	}

	audience, err := s.courses.QueryActiveEnrollments(ctx, crs.ID)
	if err != nil {
		s.log.Warn(fmt.Sprintf("sweep: resolving audience: session=%s course=%s: %v", sess.ID, crs.ID, err), err)
		out.Skipped = "audience not resolved"
		return out
	}
	if len(audience) == 0 {
		s.log.Warn(fmt.Sprintf("sweep: session=%s course=%s has no active enrollments", sess.ID, crs.ID))
		out.Skipped = "empty audience"
		return out
	}

	out.Audience = len(audience)
	for _, enr := range audience {
		s.announceMember(ctx, sess, crs, target, enr.UserID, &out)
	}
	return out
}

// announceMember processes one audience member: a notification record, then
// an email gated on the record's creation. Each failure is logged and counted
// but never stops the other members.
func (s *Sweep) announceMember(ctx context.Context, sess Session, crs course.Course, target, userID string, out *SessionOutcome) {
	usr, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.log.Warn(fmt.Sprintf("sweep: resolving enrollee: session=%s user=%s: %v", sess.ID, userID, err), err)
		out.Failures++
		return
	}

	_, err = s.notifs.CreateNotification(ctx, notification.Notification{
		UserID:     usr.ID,
		Title:      "Live class starting soon",
		Message:    fmt.Sprintf("%q (%s) starts at %s.", sess.Title, crs.Title, sess.StartsAt.Format(time.Kitchen)),
		Type:       notification.TypeLiveClassStarting,
		TargetLink: target,
		Priority:   notification.PriorityHigh,
		IsRead:     false,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn(fmt.Sprintf("sweep: creating notification: session=%s user=%s: %v", sess.ID, usr.ID, err), err)
		out.Failures++
		return // no email without a notification record
	}
	out.Notified++

	if usr.Email == "" {
		s.log.Warn(fmt.Sprintf("sweep: enrollee has no email: session=%s user=%s", sess.ID, usr.ID))
		out.Failures++
		return
	}
	err = s.mailSvc.SendMessage(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("%s is starting soon", sess.Title),
		TemplateName: "live-class-starting",
		TemplateData: struct {
			User    user.User
			Course  course.Course
			Session Session
		}{usr, crs, sess},
	})
	if err != nil {
		// no retry within a run; the member keeps the in-app notification
		s.log.Warn(fmt.Sprintf("sweep: sending email: session=%s user=%s: %v", sess.ID, usr.ID, err), err)
		out.Failures++
		return
	}
	out.Emailed++
}
