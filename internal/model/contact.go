package model

// ContactKind selects which contact-us form is being submitted.
type ContactKind string

const (
	ContactStudent   ContactKind = "student"
	ContactCollege   ContactKind = "college"
	ContactRecruiter ContactKind = "recruiter"
)

// StudentContact is the student contact-us form. Every field except Extras is
// required before any network call is made.
type StudentContact struct {
	Email         string            `json:"email" validate:"required,email"`
	Name          string            `json:"name" validate:"required"`
	Qualification string            `json:"qualification" validate:"required"`
	PassedoutYear string            `json:"passedout_year" validate:"required"`
	College       string            `json:"college" validate:"required"`
	Purpose       string            `json:"purpose" validate:"required"`
	Phone         string            `json:"phone" validate:"required"`
	Extras        map[string]string `json:"extras"`
}

// CollegeContact is the institution contact-us form.
type CollegeContact struct {
	Email          string            `json:"email" validate:"required,email"`
	Name           string            `json:"name" validate:"required"`
	Location       string            `json:"location" validate:"required"`
	Contact        string            `json:"contact" validate:"required"`
	Designation    string            `json:"designation" validate:"required"`
	PointOfContact string            `json:"point_of_contact" validate:"required"`
	Extras         map[string]string `json:"extras"`
}

// RecruiterContact is the recruiter contact-us form.
type RecruiterContact struct {
	Email              string            `json:"email" validate:"required,email"`
	CompanyName        string            `json:"company_name" validate:"required"`
	Designation        string            `json:"designation" validate:"required"`
	PointOfContactName string            `json:"point_of_contact_name" validate:"required"`
	Phone              string            `json:"phone" validate:"required"`
	UsingPlatform      string            `json:"using_platform" validate:"required"`
	Extras             map[string]string `json:"extras"`
}

// ContactSubmission is an admin-visible contact form row. The three admin
// listings share this loose shape; unknown fields end up in Extras on the
// backend side and are not surfaced here.
type ContactSubmission struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
