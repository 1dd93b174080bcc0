package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/laurateck/examdesk/internal/model"
)

// Exam flow errors.
var (
	// ErrInvalidAttempt means the start endpoint answered 2xx but without a
	// positive attempt_id; the student stays on the preflight screen.
	ErrInvalidAttempt = errors.New("invalid attempt data from server")

	// ErrAlreadySubmitted is the idempotent-acceptance case: the backend
	// rejected the submit because the attempt is already closed. Callers
	// treat it identically to success, with a warning instead of an error.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

// StartExamAuto starts (or resumes) the student's scheduled attempt. The
// endpoint takes no body beyond the auth token.
func (c *Client) StartExamAuto(ctx context.Context) (model.Attempt, error) {
	var attempt model.Attempt
	if err := c.doJSON(ctx, "POST", "/exam/exams/start/auto", c.StudentToken(), nil, &attempt); err != nil {
		return model.Attempt{}, fmt.Errorf("start exam: %w", err)
	}
	if !attempt.Valid() {
		return model.Attempt{}, ErrInvalidAttempt
	}
	return attempt, nil
}

// FetchPaper retrieves the question set for an attempt. Callers cache the
// result; the paper is immutable for the attempt's lifetime.
func (c *Client) FetchPaper(ctx context.Context, attemptID int) (model.ExamPaper, error) {
	var paper model.ExamPaper
	path := fmt.Sprintf("/exam/attempts/%d/paper", attemptID)
	if err := c.doJSON(ctx, "GET", path, c.StudentToken(), nil, &paper); err != nil {
		return model.ExamPaper{}, fmt.Errorf("fetch paper: %w", err)
	}
	return paper, nil
}

type submitRequest struct {
	Answers []model.Answer `json:"answers"`
}

// SubmitAttempt posts the aggregated answer list, ending the attempt. A
// failure whose body decodes to "Already submitted" comes back as
// ErrAlreadySubmitted; any other failure leaves the attempt open and
// retryable.
func (c *Client) SubmitAttempt(ctx context.Context, attemptID int, answers []model.Answer) error {
	if answers == nil {
		answers = []model.Answer{}
	}
	path := fmt.Sprintf("/exam/attempts/%d/submit", attemptID)
	err := c.doJSON(ctx, "POST", path, c.StudentToken(), submitRequest{Answers: answers}, nil)
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Detail() == "Already submitted" {
		return ErrAlreadySubmitted
	}
	return fmt.Errorf("submit attempt: %w", err)
}
