package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/laurateck/examdesk/internal/api"
	"github.com/laurateck/examdesk/internal/model"
	"github.com/laurateck/examdesk/internal/store"
)

// Overview errors.
var (
	ErrNotReady         = errors.New("overview is not ready")
	ErrSubjectCompleted = errors.New("subject already completed")
	ErrUnknownSubject   = errors.New("subject not in this paper")
	ErrSectionsPending  = errors.New("not all sections are completed")
	ErrSubmitInFlight   = errors.New("final submit already in flight")
)

// Backend is the slice of the API client the session engine needs.
type Backend interface {
	FetchPaper(ctx context.Context, attemptID int) (model.ExamPaper, error)
	SubmitAttempt(ctx context.Context, attemptID int, answers []model.Answer) error
}

// Overview owns the authoritative in-memory copy of the paper, the
// per-subject answers and the completed-subject set for one attempt, and is
// the only component that mutates their persisted form. Invariant held after
// every mutation: the completed set equals the key set of the answers map.
type Overview struct {
	mu sync.Mutex

	backend Backend
	store   store.Store
	log     zerolog.Logger

	attempt model.Attempt
	endsAt  time.Time
	clock   func() time.Time

	paper    *model.ExamPaper
	subjects []string
	answers  model.SubjectAnswers
	// completed keeps completion order; completedSet backs membership checks.
	completed    []string
	completedSet map[string]struct{}

	state       OverviewState
	submitState RequestState

	// initialRemaining is captured once so TimeTaken can be derived the way
	// the original did: initial duration minus remaining at submit.
	initialRemaining time.Duration

	// media is released on every terminal path. Optional.
	media io.Closer
}

// Option configures an Overview.
type Option func(*Overview)

// WithClock overrides wall-clock time. Tests only.
func WithClock(clock func() time.Time) Option {
	return func(o *Overview) { o.clock = clock }
}

// WithMedia hands the overview the capture handle to release on completion.
func WithMedia(media io.Closer) Option {
	return func(o *Overview) { o.media = media }
}

// NewOverview resolves the attempt (preferring a previously cached descriptor
// over the one passed in, so reloads win) and prepares an uninitialized
// overview. endsAtOffset is the deployment's naive-timestamp correction.
func NewOverview(
	ctx context.Context,
	backend Backend,
	st store.Store,
	attempt model.Attempt,
	endsAtOffset time.Duration,
	log zerolog.Logger,
	opts ...Option,
) (*Overview, error) {
	if !attempt.Valid() {
		return nil, api.ErrInvalidAttempt
	}

	if cached, err := store.LoadAttempt(ctx, st, attempt.AttemptID); err == nil {
		attempt = cached
	} else if err := store.SaveAttempt(ctx, st, attempt); err != nil {
		return nil, fmt.Errorf("cache attempt: %w", err)
	}

	endsAt, err := ParseEndsAt(attempt.EndsAt, endsAtOffset)
	if err != nil {
		return nil, err
	}

	o := &Overview{
		backend:      backend,
		store:        st,
		log:          log.With().Str("component", "overview").Int("attempt_id", attempt.AttemptID).Logger(),
		attempt:      attempt,
		endsAt:       endsAt,
		clock:        time.Now,
		answers:      make(model.SubjectAnswers),
		completedSet: make(map[string]struct{}),
		state:        StateUninitialized,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.initialRemaining = Remaining(o.endsAt, o.clock())
	return o, nil
}

// Load brings the overview to Ready. A complete cached triple is adopted
// without a network call; otherwise the paper is fetched and cached, and any
// partially-present progress is still adopted. A fetch failure leaves the
// overview Failed; the caller's retry routes back through preflight.
func (o *Overview) Load(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateLoading

	cached, err := store.LoadAttemptState(ctx, o.store, o.attempt.AttemptID)
	if err != nil {
		o.log.Warn().Err(err).Msg("Session store read failed")
	}

	if cached.Complete() {
		o.adopt(*cached.Paper, cached.Answers, cached.Completed)
		o.log.Info().Int("subjects", len(o.subjects)).Msg("Rehydrated attempt from session store")
		return nil
	}

	paper, err := o.backend.FetchPaper(ctx, o.attempt.AttemptID)
	if err != nil {
		o.state = StateFailed
		return fmt.Errorf("load paper: %w", err)
	}
	if err := store.SavePaper(ctx, o.store, paper); err != nil {
		o.state = StateFailed
		return fmt.Errorf("cache paper: %w", err)
	}

	o.adopt(paper, cached.Answers, cached.Completed)
	o.log.Info().Int("subjects", len(o.subjects)).Msg("Paper fetched")
	return nil
}

// adopt installs a paper plus any recovered progress and moves to Ready.
func (o *Overview) adopt(paper model.ExamPaper, answers model.SubjectAnswers, completed []string) {
	o.paper = &paper
	o.subjects = paper.Subjects()
	if answers != nil {
		o.answers = answers
	}
	o.completed = o.completed[:0]
	o.completedSet = make(map[string]struct{}, len(completed))
	for _, s := range completed {
		o.completed = append(o.completed, s)
		o.completedSet[s] = struct{}{}
	}
	o.state = StateReady
}

// State returns the attempt lifecycle state.
func (o *Overview) State() OverviewState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Attempt returns the attempt descriptor.
func (o *Overview) Attempt() model.Attempt { return o.attempt }

// Paper returns the adopted paper, nil before Ready.
func (o *Overview) Paper() *model.ExamPaper {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paper
}

// Subjects lists the paper's sections in first-appearance order.
func (o *Overview) Subjects() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.subjects...)
}

// SubjectCompleted reports whether a section has been finalized.
func (o *Overview) SubjectCompleted(subject string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.completedSet[subject]
	return ok
}

// CompletedSubjects returns the finalized sections in completion order.
func (o *Overview) CompletedSubjects() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.completed...)
}

// AllCompleted reports whether every section is finalized, which unlocks the
// final submit.
func (o *Overview) AllCompleted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateReady || len(o.subjects) == 0 {
		return false
	}
	for _, s := range o.subjects {
		if _, ok := o.completedSet[s]; !ok {
			return false
		}
	}
	return true
}

// Remaining returns the countdown value right now.
func (o *Overview) Remaining() time.Duration {
	return Remaining(o.endsAt, o.clock())
}

// EndsAt returns the corrected attempt deadline.
func (o *Overview) EndsAt() time.Time { return o.endsAt }

// Countdown builds the shared attempt countdown.
func (o *Overview) Countdown() *Countdown {
	return NewCountdown(o.endsAt)
}

// StartSubject hands out a runner for one uncompleted section.
func (o *Overview) StartSubject(subject string) (*Runner, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateReady {
		return nil, ErrNotReady
	}
	questions := o.paper.QuestionsFor(subject)
	if len(questions) == 0 {
		return nil, ErrUnknownSubject
	}
	if _, done := o.completedSet[subject]; done {
		return nil, ErrSubjectCompleted
	}
	return NewRunner(subject, o.attempt.AttemptID, o.endsAt, questions)
}

// RecordSubject takes a returning runner's result: the subject's answers are
// recorded (idempotent by overwrite — re-returning replaces, never
// duplicates), the subject joins the completed set, and both maps persist
// synchronously so a reload never loses a completed section.
func (o *Overview) RecordSubject(ctx context.Context, res SectionResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateReady {
		return ErrNotReady
	}

	if res.Answers == nil {
		res.Answers = []model.Answer{}
	}
	o.answers[res.Subject] = res.Answers
	if _, seen := o.completedSet[res.Subject]; !seen {
		o.completed = append(o.completed, res.Subject)
		o.completedSet[res.Subject] = struct{}{}
	}

	if err := store.SaveProgress(ctx, o.store, o.attempt.AttemptID, o.answers, o.completed); err != nil {
		return fmt.Errorf("persist section %q: %w", res.Subject, err)
	}

	o.log.Info().
		Str("subject", res.Subject).
		Int("answered", len(res.Answers)).
		Int("total", res.TotalQuestions).
		Msg("Section recorded")
	return nil
}

// Aggregate flattens every section's answers into the submission list:
// subject completion order, then per-subject insertion order.
func (o *Overview) Aggregate() []model.Answer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.aggregateLocked()
}

func (o *Overview) aggregateLocked() []model.Answer {
	var all []model.Answer
	for _, subject := range o.completed {
		all = append(all, o.answers[subject]...)
	}
	return all
}

// Summary is what the success screen shows.
type Summary struct {
	QuestionsAttempted int
	TotalQuestions     int
	TimeTaken          time.Duration
	// AlreadySubmitted marks the idempotent-acceptance outcome; surfaced as
	// a warning rather than an error.
	AlreadySubmitted bool
}

// SuccessAutoReturn is how long the success screen lingers before the
// session tears itself down.
const SuccessAutoReturn = 20 * time.Second

// FinalSubmit aggregates and posts every section's answers. force skips the
// all-sections-completed gate, which is the time-out path. Outcomes:
// success and "already submitted" both clear the four attempt keys, release
// media and move to Submitted; any other failure leaves state untouched and
// retryable. Concurrent invocation is rejected with ErrSubmitInFlight.
func (o *Overview) FinalSubmit(ctx context.Context, force bool) (Summary, error) {
	o.mu.Lock()
	if o.state != StateReady {
		o.mu.Unlock()
		return Summary{}, ErrNotReady
	}
	if o.submitState == RequestInFlight {
		o.mu.Unlock()
		return Summary{}, ErrSubmitInFlight
	}
	if !force {
		for _, s := range o.subjects {
			if _, ok := o.completedSet[s]; !ok {
				o.mu.Unlock()
				return Summary{}, ErrSectionsPending
			}
		}
	}
	o.submitState = RequestInFlight
	answers := o.aggregateLocked()
	total := len(o.paper.Questions)
	o.mu.Unlock()

	err := o.backend.SubmitAttempt(ctx, o.attempt.AttemptID, answers)

	o.mu.Lock()
	defer o.mu.Unlock()

	summary := Summary{
		QuestionsAttempted: len(answers),
		TotalQuestions:     total,
		TimeTaken:          o.initialRemaining - Remaining(o.endsAt, o.clock()),
	}

	switch {
	case err == nil:
	case errors.Is(err, api.ErrAlreadySubmitted):
		summary.AlreadySubmitted = true
	default:
		// Retryable: no storage mutation, no media release.
		o.submitState = RequestFailed
		return Summary{}, err
	}

	if err := store.ClearAttempt(ctx, o.store, o.attempt.AttemptID); err != nil {
		o.log.Error().Err(err).Msg("Failed to clear attempt state")
	}
	o.releaseMediaLocked()

	o.submitState = RequestSucceeded
	o.state = StateSubmitted
	o.log.Info().
		Int("answers", summary.QuestionsAttempted).
		Bool("already_submitted", summary.AlreadySubmitted).
		Msg("Attempt submitted")
	return summary, nil
}

// Close releases held resources on abandon paths. Safe to call repeatedly.
func (o *Overview) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.releaseMediaLocked()
	return nil
}

func (o *Overview) releaseMediaLocked() {
	if o.media == nil {
		return
	}
	if err := o.media.Close(); err != nil {
		o.log.Warn().Err(err).Msg("Media release failed")
	}
	o.media = nil
}
