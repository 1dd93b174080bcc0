package store

import (
	"context"
	"fmt"

	"github.com/laurateck/examdesk/internal/model"
)

// AttemptState is the complete persisted picture of one attempt: the four
// keys the web client kept in localStorage. Reconstructing an Overview after
// a crash reads exactly this.
type AttemptState struct {
	Attempt   model.Attempt
	Paper     *model.ExamPaper
	Answers   model.SubjectAnswers
	Completed []string

	complete bool
}

// SaveAttempt caches the attempt descriptor under its own ID.
func SaveAttempt(ctx context.Context, s Store, a model.Attempt) error {
	return s.Put(ctx, Key{NSAttempt, a.AttemptID}, a)
}

// LoadAttempt reads a cached attempt descriptor.
func LoadAttempt(ctx context.Context, s Store, attemptID int) (model.Attempt, error) {
	var a model.Attempt
	err := s.Get(ctx, Key{NSAttempt, attemptID}, &a)
	return a, err
}

// SavePaper caches the fetched paper verbatim.
func SavePaper(ctx context.Context, s Store, paper model.ExamPaper) error {
	return s.Put(ctx, Key{NSPaper, paper.AttemptID}, paper)
}

// SaveProgress persists both progress maps. Called synchronously on every
// mutation so the two never drift apart on disk.
func SaveProgress(ctx context.Context, s Store, attemptID int, answers model.SubjectAnswers, completed []string) error {
	if err := s.Put(ctx, Key{NSSubjectAnswers, attemptID}, answers); err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	if err := s.Put(ctx, Key{NSCompletedSubjects, attemptID}, completed); err != nil {
		return fmt.Errorf("save completed set: %w", err)
	}
	return nil
}

// LoadAttemptState reads whatever is present for the attempt. Absent paper
// yields a nil Paper; absent progress yields empty maps. Only a transport
// error is returned.
func LoadAttemptState(ctx context.Context, s Store, attemptID int) (AttemptState, error) {
	state := AttemptState{
		Answers:   make(model.SubjectAnswers),
		Completed: []string{},
	}

	if err := s.Get(ctx, Key{NSAttempt, attemptID}, &state.Attempt); err != nil && err != ErrNotFound {
		return state, err
	}

	var paper model.ExamPaper
	hasAnswers, hasCompleted := true, true

	switch err := s.Get(ctx, Key{NSPaper, attemptID}, &paper); err {
	case nil:
		state.Paper = &paper
	case ErrNotFound:
	default:
		return state, err
	}

	switch err := s.Get(ctx, Key{NSSubjectAnswers, attemptID}, &state.Answers); err {
	case nil:
	case ErrNotFound:
		hasAnswers = false
	default:
		return state, err
	}
	switch err := s.Get(ctx, Key{NSCompletedSubjects, attemptID}, &state.Completed); err {
	case nil:
	case ErrNotFound:
		hasCompleted = false
	default:
		return state, err
	}

	state.complete = state.Paper != nil && hasAnswers && hasCompleted
	return state, nil
}

// Complete reports whether the full triple (paper + both progress maps) was
// present, i.e. the state can be adopted without a network call.
func (st AttemptState) Complete() bool {
	return st.complete
}

// ClearAttempt deletes the four attempt-scoped keys together. This runs
// exactly once, when the backend confirms final submission.
func ClearAttempt(ctx context.Context, s Store, attemptID int) error {
	return s.Delete(ctx, AttemptKeys(attemptID)...)
}

// SaveIdentity persists a login under the student or admin namespace.
func SaveIdentity(ctx context.Context, s Store, ns Namespace, id model.Identity) error {
	return s.Put(ctx, Key{Namespace: ns}, id)
}

// LoadIdentity reads a persisted login. ErrNotFound means logged out.
func LoadIdentity(ctx context.Context, s Store, ns Namespace) (model.Identity, error) {
	var id model.Identity
	err := s.Get(ctx, Key{Namespace: ns}, &id)
	return id, err
}

// ClearIdentity logs out the given namespace.
func ClearIdentity(ctx context.Context, s Store, ns Namespace) error {
	return s.Delete(ctx, Key{Namespace: ns})
}
