package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/laurateck/examdesk/internal/model"
	"github.com/laurateck/examdesk/internal/validator"
)

// ListExams returns all exams visible to the admin.
func (c *Client) ListExams(ctx context.Context) ([]model.Exam, error) {
	var exams []model.Exam
	if err := c.doJSON(ctx, "GET", "/exam/exams", c.AdminToken(), nil, &exams); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// ListRegistrations returns the registered student roster. Results views
// join attempt rows against this list by user_id.
func (c *Client) ListRegistrations(ctx context.Context) ([]model.Registration, error) {
	var students []model.Registration
	if err := c.doJSON(ctx, "GET", "/admin/registrations", c.AdminToken(), nil, &students); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return students, nil
}

// ListColleges returns the full college records (admin view).
func (c *Client) ListColleges(ctx context.Context) ([]model.College, error) {
	var colleges []model.College
	if err := c.doJSON(ctx, "GET", "/admin/colleges", c.AdminToken(), nil, &colleges); err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	return colleges, nil
}

// ListContactSubmissions pages through one of the three contact inboxes.
func (c *Client) ListContactSubmissions(ctx context.Context, kind model.ContactKind, limit, offset int) ([]model.ContactSubmission, error) {
	var inbox string
	switch kind {
	case model.ContactStudent:
		inbox = "students"
	case model.ContactCollege:
		inbox = "colleges"
	case model.ContactRecruiter:
		inbox = "recruiters"
	default:
		return nil, fmt.Errorf("unknown contact kind %q", kind)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var rows []model.ContactSubmission
	path := withQuery("/contact/admin/"+inbox, params)
	if err := c.doJSON(ctx, "GET", path, c.AdminToken(), nil, &rows); err != nil {
		return nil, fmt.Errorf("list %s contacts: %w", inbox, err)
	}
	return rows, nil
}

// CreateExam creates an exam with its subject list and scheduling window.
func (c *Client) CreateExam(ctx context.Context, req model.CreateExamRequest) error {
	if fields := validator.Check(&req); fields != nil {
		return &validator.FieldError{Fields: fields}
	}
	if err := c.doJSON(ctx, "POST", "/admin/exams", c.AdminToken(), req, nil); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// AddQuestion adds a single question to an exam. The correct index must
// address one of the supplied options; that is checked here, before the
// round-trip, as the dashboard did.
func (c *Client) AddQuestion(ctx context.Context, examID string, req model.AddQuestionRequest) error {
	if fields := validator.Check(&req); fields != nil {
		return &validator.FieldError{Fields: fields}
	}
	if req.CorrectIndex >= len(req.Options) {
		return &validator.FieldError{Fields: map[string]string{
			"correct_index": "must reference one of the supplied options",
		}}
	}
	path := fmt.Sprintf("/admin/exams/%s/questions", examID)
	if err := c.doJSON(ctx, "POST", path, c.AdminToken(), req, nil); err != nil {
		return fmt.Errorf("add question: %w", err)
	}
	return nil
}

// BulkUploadQuestions streams a question file to the bulk endpoint as
// multipart form data. Invalid rows fail the whole upload (skip_invalid=false).
func (c *Client) BulkUploadQuestions(ctx context.Context, examID, filename string, file io.Reader) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	path := fmt.Sprintf("/admin/exams/%s/questions/bulk?skip_invalid=false", examID)
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.decorate(req, c.AdminToken())

	if err := c.send(req, nil); err != nil {
		return fmt.Errorf("bulk upload: %w", err)
	}
	return nil
}

// CreateCollege registers a college with its passkey.
func (c *Client) CreateCollege(ctx context.Context, req model.CollegeRequest) error {
	req.IsActive = nil // Only updates carry is_active.
	if fields := validator.Check(&req); fields != nil {
		return &validator.FieldError{Fields: fields}
	}
	if err := c.doJSON(ctx, "POST", "/admin/colleges", c.AdminToken(), req, nil); err != nil {
		return fmt.Errorf("create college: %w", err)
	}
	return nil
}

// UpdateCollege replaces a college record. is_active:true is injected, which
// is how the dashboard re-activates a soft-deleted college on edit.
func (c *Client) UpdateCollege(ctx context.Context, id int, req model.CollegeRequest) error {
	active := true
	req.IsActive = &active
	if fields := validator.Check(&req); fields != nil {
		return &validator.FieldError{Fields: fields}
	}
	path := fmt.Sprintf("/admin/colleges/%d", id)
	if err := c.doJSON(ctx, "PUT", path, c.AdminToken(), req, nil); err != nil {
		return fmt.Errorf("update college: %w", err)
	}
	return nil
}

// DeleteCollege soft-deletes a college (hard=false).
func (c *Client) DeleteCollege(ctx context.Context, id int) error {
	path := fmt.Sprintf("/admin/colleges/%d?hard=false", id)
	if err := c.doJSON(ctx, "DELETE", path, c.AdminToken(), nil, nil); err != nil {
		return fmt.Errorf("delete college: %w", err)
	}
	return nil
}

// ExamResults fetches graded attempts (with per-subject breakdown) for one exam.
func (c *Client) ExamResults(ctx context.Context, examID string) (model.ExamResults, error) {
	var results model.ExamResults
	path := fmt.Sprintf("/admin/exams/%s/results", examID)
	if err := c.doJSON(ctx, "GET", path, c.AdminToken(), nil, &results); err != nil {
		return model.ExamResults{}, fmt.Errorf("exam results: %w", err)
	}
	results.ExamID = examID
	return results, nil
}
