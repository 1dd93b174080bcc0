package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is stamped on every persisted value. A version mismatch on
// read is treated the same as a missing key so stale blobs from older builds
// never rehydrate into live state.
const SchemaVersion = 1

// ErrNotFound is returned when a key is absent (or its schema is stale).
var ErrNotFound = errors.New("store: key not found")

// Namespace partitions the store. The four attempt namespaces are the only
// keys deleted by ClearAttempt; identity namespaces survive it.
type Namespace string

const (
	NSAttempt           Namespace = "attempt"
	NSPaper             Namespace = "paper"
	NSSubjectAnswers    Namespace = "subject_answers"
	NSCompletedSubjects Namespace = "completed_subjects"
	NSStudentIdentity   Namespace = "identity_student"
	NSAdminIdentity     Namespace = "identity_admin"
)

// Key addresses one value. AttemptID is zero for identity namespaces.
type Key struct {
	Namespace Namespace
	AttemptID int
}

// String renders the storage key. The layout mirrors the web client's
// localStorage keys (paper_<id>, subjectAnswers_<id>, ...) with the namespace
// up front so redis scans group naturally.
func (k Key) String() string {
	if k.AttemptID == 0 {
		return fmt.Sprintf("examdesk:%s", k.Namespace)
	}
	return fmt.Sprintf("examdesk:%s:%d", k.Namespace, k.AttemptID)
}

// AttemptKeys returns the four per-attempt keys that live and die together.
func AttemptKeys(attemptID int) []Key {
	return []Key{
		{NSAttempt, attemptID},
		{NSPaper, attemptID},
		{NSSubjectAnswers, attemptID},
		{NSCompletedSubjects, attemptID},
	}
}

// Store is the single read/write module for all locally persisted state.
// Implementations must make Put durable before returning: the session engine
// writes synchronously on every mutation so a crash never loses a completed
// subject.
type Store interface {
	// Get unmarshals the value at key into dst. Returns ErrNotFound when the
	// key is absent or was written by a different schema version.
	Get(ctx context.Context, key Key, dst any) error
	// Put marshals v and writes it at key.
	Put(ctx context.Context, key Key, v any) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...Key) error
}

// envelope wraps every persisted value with its schema version.
type envelope struct {
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

func seal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return json.Marshal(envelope{Version: SchemaVersion, Data: data})
}

func open(raw []byte, dst any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != SchemaVersion {
		return ErrNotFound
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	return nil
}
