package course

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-app/darasa/core"
)

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	InstructorID string    `json:"instructor_id"`
	PriceCents   int       `json:"price_cents"`
	Currency     string    `json:"currency"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (c Course) IsFree() bool { return c.PriceCents == 0 }

type Enrollment struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Review struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required,min=3"`
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Currency = strings.ToUpper(core.CleanString(nc.Currency))
	if nc.Currency == "" {
		nc.Currency = "USD"
	}
	return validate.Struct(nc)
}

// NewReview contains information needed to review a Course.
type NewReview struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID string `query:"instructor"`
	IsPublished  *bool  `query:"is_published"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.InstructorID == "" && qf.IsPublished == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a course title into a URL-friendly slug.
func Slugify(title string) string {
	slug := strings.ToLower(core.CleanString(title))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
