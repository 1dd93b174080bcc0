package api

import (
	"context"
	"fmt"

	"github.com/laurateck/examdesk/internal/model"
	"github.com/laurateck/examdesk/internal/validator"
)

// contactPath maps a form kind to its endpoint. The deployed backend routes
// recruiter forms through the student endpoint; kept as observed so
// submissions keep landing where the dashboard reads them.
func contactPath(kind model.ContactKind) (string, error) {
	switch kind {
	case model.ContactStudent, model.ContactRecruiter:
		return "/contact/student", nil
	case model.ContactCollege:
		return "/contact/college", nil
	default:
		return "", fmt.Errorf("unknown contact kind %q", kind)
	}
}

// SubmitStudentContact validates and posts the student contact-us form.
func (c *Client) SubmitStudentContact(ctx context.Context, form model.StudentContact) error {
	if form.Extras == nil {
		form.Extras = map[string]string{}
	}
	return c.submitContact(ctx, model.ContactStudent, &form)
}

// SubmitCollegeContact validates and posts the institution contact-us form.
func (c *Client) SubmitCollegeContact(ctx context.Context, form model.CollegeContact) error {
	if form.Extras == nil {
		form.Extras = map[string]string{}
	}
	return c.submitContact(ctx, model.ContactCollege, &form)
}

// SubmitRecruiterContact validates and posts the recruiter contact-us form.
func (c *Client) SubmitRecruiterContact(ctx context.Context, form model.RecruiterContact) error {
	if form.Extras == nil {
		form.Extras = map[string]string{}
	}
	return c.submitContact(ctx, model.ContactRecruiter, &form)
}

// submitContact enforces the client-side rule: every non-email/extras field
// non-empty before any network call.
func (c *Client) submitContact(ctx context.Context, kind model.ContactKind, form any) error {
	if fields := validator.Check(form); fields != nil {
		return &validator.FieldError{Fields: fields}
	}

	path, err := contactPath(kind)
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, "POST", path, "", form, nil); err != nil {
		return fmt.Errorf("submit contact form: %w", err)
	}
	return nil
}
