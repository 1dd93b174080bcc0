package model

// Exam is the admin-side exam record.
type Exam struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	WindowStart     string   `json:"window_start"`
	WindowEnd       string   `json:"window_end"`
	DurationMinutes int      `json:"duration_minutes"`
	Subjects        []string `json:"subjects,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// CreateExamRequest is the payload for creating an exam. Window timestamps
// must be RFC 3339; the validator enforces the non-empty fields the web
// client used to check by hand.
type CreateExamRequest struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description"`
	WindowStart     string   `json:"window_start" validate:"required"`
	WindowEnd       string   `json:"window_end" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,gt=0"`
	Subjects        []string `json:"subjects" validate:"required,min=1,dive,required"`
	Category        string   `json:"category" validate:"required"`
}

// AddQuestionRequest adds a single question to an exam.
type AddQuestionRequest struct {
	Text         string       `json:"text" validate:"required"`
	Options      []OptionText `json:"options" validate:"required,min=2,dive"`
	CorrectIndex int          `json:"correct_index" validate:"gte=0"`
	SubjectName  string       `json:"subject_name" validate:"required"`
}

// OptionText is an option as sent on question creation (no ID yet).
type OptionText struct {
	Text string `json:"text" validate:"required"`
}

// CollegeRequest creates or updates a college. Updates additionally carry
// is_active, injected by the client.
type CollegeRequest struct {
	Name             string `json:"name" validate:"required"`
	Passkey          string `json:"passkey" validate:"required"`
	PasskeyExpiresAt string `json:"passkey_expires_at" validate:"required"`
	IsActive         *bool  `json:"is_active,omitempty"`
}
