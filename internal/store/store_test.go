package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/laurateck/examdesk/internal/model"
)

func TestKeyString(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{Key{NSPaper, 42}, "examdesk:paper:42"},
		{Key{NSSubjectAnswers, 7}, "examdesk:subject_answers:7"},
		{Key{NSStudentIdentity, 0}, "examdesk:identity_student"},
	}
	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Errorf("%+v = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestAttemptKeysCoverAllFourNamespaces(t *testing.T) {
	keys := AttemptKeys(5)
	if len(keys) != 4 {
		t.Fatalf("got %d keys", len(keys))
	}
	seen := map[Namespace]bool{}
	for _, k := range keys {
		if k.AttemptID != 5 {
			t.Errorf("key %s has wrong attempt id", k)
		}
		seen[k.Namespace] = true
	}
	for _, ns := range []Namespace{NSAttempt, NSPaper, NSSubjectAnswers, NSCompletedSubjects} {
		if !seen[ns] {
			t.Errorf("namespace %s missing", ns)
		}
	}
}

// backends under test share one behavioral contract.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"file":   f,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := Key{NSSubjectAnswers, 42}
			in := model.SubjectAnswers{
				"Math": {{QuestionID: 1, ChosenOptionID: 10}},
			}
			if err := st.Put(ctx, key, in); err != nil {
				t.Fatalf("put: %v", err)
			}

			var out model.SubjectAnswers
			if err := st.Get(ctx, key, &out); err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(out["Math"]) != 1 || out["Math"][0].ChosenOptionID != 10 {
				t.Fatalf("round trip lost data: %v", out)
			}

			// Overwrite replaces.
			in["Math"] = []model.Answer{{QuestionID: 1, ChosenOptionID: 11}}
			if err := st.Put(ctx, key, in); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if err := st.Get(ctx, key, &out); err != nil {
				t.Fatalf("get after overwrite: %v", err)
			}
			if out["Math"][0].ChosenOptionID != 11 {
				t.Fatalf("overwrite not visible: %v", out)
			}
		})
	}
}

func TestStoreMissingKey(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var out model.Attempt
			if err := st.Get(ctx, Key{NSAttempt, 999}, &out); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			// Deleting what is not there is fine.
			if err := st.Delete(ctx, Key{NSAttempt, 999}); err != nil {
				t.Fatalf("delete missing: %v", err)
			}
		})
	}
}

func TestStoreDeleteMany(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range AttemptKeys(42) {
				if err := st.Put(ctx, k, "x"); err != nil {
					t.Fatalf("put %s: %v", k, err)
				}
			}
			if err := st.Delete(ctx, AttemptKeys(42)...); err != nil {
				t.Fatalf("delete: %v", err)
			}
			for _, k := range AttemptKeys(42) {
				var v string
				if err := st.Get(ctx, k, &v); !errors.Is(err, ErrNotFound) {
					t.Fatalf("key %s survived delete: %v", k, err)
				}
			}
		})
	}
}

// A blob written by a different schema version reads as missing.
func TestStoreSchemaVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	ctx := context.Background()
	key := Key{NSPaper, 1}

	stale, _ := json.Marshal(map[string]any{"v": SchemaVersion + 1, "data": json.RawMessage(`{"exam_id":9}`)})
	name := strings.ReplaceAll(key.String(), ":", "_") + ".json"
	if err := os.WriteFile(filepath.Join(dir, name), stale, 0o644); err != nil {
		t.Fatalf("seed stale blob: %v", err)
	}

	var out model.ExamPaper
	if err := st.Get(ctx, key, &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale schema read as %v, want ErrNotFound", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	attempt := model.Attempt{AttemptID: 42, EndsAt: "2026-03-01T10:00:00"}
	if err := SaveAttempt(ctx, first, attempt); err != nil {
		t.Fatalf("save: %v", err)
	}

	second, err := NewFile(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := LoadAttempt(ctx, second, 42)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if got != attempt {
		t.Fatalf("got %+v, want %+v", got, attempt)
	}
}

func TestLoadAttemptStateCompleteness(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	paper := model.ExamPaper{AttemptID: 42, Questions: []model.Question{{QuestionID: 1, Subject: "Math"}}}

	if err := SaveAttempt(ctx, st, model.Attempt{AttemptID: 42, EndsAt: "2026-03-01T10:00:00"}); err != nil {
		t.Fatalf("save attempt: %v", err)
	}
	if err := SavePaper(ctx, st, paper); err != nil {
		t.Fatalf("save paper: %v", err)
	}

	// Paper alone is not a resumable session.
	state, err := LoadAttemptState(ctx, st, 42)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Complete() {
		t.Fatal("paper without progress reported complete")
	}

	answers := model.SubjectAnswers{"Math": {{QuestionID: 1, ChosenOptionID: 10}}}
	if err := SaveProgress(ctx, st, 42, answers, []string{"Math"}); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	state, err = LoadAttemptState(ctx, st, 42)
	if err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if !state.Complete() {
		t.Fatal("full triple not reported complete")
	}
	if len(state.Completed) != 1 || state.Completed[0] != "Math" {
		t.Fatalf("completed = %v", state.Completed)
	}
}

func TestClearAttemptSparesIdentity(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	id := model.Identity{Email: "a@b.c", Token: "tok"}
	if err := SaveIdentity(ctx, st, NSStudentIdentity, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if err := SaveAttempt(ctx, st, model.Attempt{AttemptID: 42, EndsAt: "2026-03-01T10:00:00"}); err != nil {
		t.Fatalf("save attempt: %v", err)
	}

	if err := ClearAttempt(ctx, st, 42); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if _, err := LoadAttempt(ctx, st, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attempt survived clear: %v", err)
	}
	got, err := LoadIdentity(ctx, st, NSStudentIdentity)
	if err != nil {
		t.Fatalf("identity lost on clear: %v", err)
	}
	if got != id {
		t.Fatalf("identity corrupted: %+v", got)
	}
}
