package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/laurateck/examdesk/internal/model"
)

// Runner errors.
var (
	ErrNoQuestions   = errors.New("runner requires a non-empty question list")
	ErrNoBacktrack   = errors.New("cannot navigate to an earlier question")
	ErrUnknownOption = errors.New("option does not belong to the current question")
)

// Runner presents one subject's questions one at a time. Navigation is
// forward-only: once the index has advanced past a question it can never be
// revisited. The runner never fetches data and never touches the store — it
// is a view over what Overview hands it, and hands its results back. Safe
// for concurrent use; gin handlers call it from multiple goroutines.
type Runner struct {
	subject   string
	attemptID int
	endsAt    time.Time
	questions []model.Question

	mu      sync.Mutex
	current int
	chosen  map[int]int // question_id → chosen_option_id
}

// NewRunner validates the input contract: a non-empty question list plus the
// subject, attempt and end instant it runs under.
func NewRunner(subject string, attemptID int, endsAt time.Time, questions []model.Question) (*Runner, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if subject == "" || attemptID <= 0 || endsAt.IsZero() {
		return nil, fmt.Errorf("runner for %q: missing attempt context", subject)
	}
	return &Runner{
		subject:   subject,
		attemptID: attemptID,
		endsAt:    endsAt,
		questions: questions,
		chosen:    make(map[int]int, len(questions)),
	}, nil
}

// Subject returns the section this runner covers.
func (r *Runner) Subject() string { return r.subject }

// EndsAt returns the shared attempt deadline.
func (r *Runner) EndsAt() time.Time { return r.endsAt }

// Len returns the number of questions in the section.
func (r *Runner) Len() int { return len(r.questions) }

// Index returns the current zero-based question index.
func (r *Runner) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Current returns the question at the current index.
func (r *Runner) Current() model.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.questions[r.current]
}

// CanNavigateTo is the no-backtrack rule: a target index is reachable iff it
// is at or ahead of the current index (and in range).
func (r *Runner) CanNavigateTo(target int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canNavigateToLocked(target)
}

func (r *Runner) canNavigateToLocked(target int) bool {
	return target >= r.current && target < len(r.questions)
}

// JumpTo moves directly to a later question. Jumping backwards is a no-op
// returning ErrNoBacktrack.
func (r *Runner) JumpTo(target int) error {
	if target < 0 || target >= len(r.questions) {
		return fmt.Errorf("question index %d out of range", target)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.canNavigateToLocked(target) {
		return ErrNoBacktrack
	}
	r.current = target
	return nil
}

// Next advances by one while not on the last question.
func (r *Runner) Next() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current < len(r.questions)-1 {
		r.current++
	}
}

// OnLast reports whether the current question is the final one.
func (r *Runner) OnLast() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current == len(r.questions)-1
}

// Choose records the chosen option for the current question. Re-choosing
// before advancing overwrites; at most one option per question.
func (r *Runner) Choose(optionID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.questions[r.current]
	for _, opt := range q.Options {
		if opt.ID == optionID {
			r.chosen[q.QuestionID] = optionID
			return nil
		}
	}
	return ErrUnknownOption
}

// Chosen returns the recorded option for a question, if any.
func (r *Runner) Chosen(questionID int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.chosen[questionID]
	return id, ok
}

// Answered returns how many questions have a recorded choice.
func (r *Runner) Answered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chosen)
}

// SectionResult is what a runner hands back to Overview: the subject's
// ordered answer list, possibly shorter than the question list when time ran
// out. TimeUp tells Overview to go straight to a full final submission.
type SectionResult struct {
	Subject        string
	AttemptID      int
	Answers        []model.Answer
	TotalQuestions int
	TimeUp         bool
}

// Finish packages whatever has been captured so far, in question order.
func (r *Runner) Finish(timeUp bool) SectionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	answers := make([]model.Answer, 0, len(r.chosen))
	for _, q := range r.questions {
		if optionID, ok := r.chosen[q.QuestionID]; ok {
			answers = append(answers, model.Answer{
				QuestionID:     q.QuestionID,
				ChosenOptionID: optionID,
			})
		}
	}
	return SectionResult{
		Subject:        r.subject,
		AttemptID:      r.attemptID,
		Answers:        answers,
		TotalQuestions: len(r.questions),
		TimeUp:         timeUp,
	}
}
