package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/laurateck/examdesk/internal/model"
	"github.com/laurateck/examdesk/internal/validator"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestStudentLoginAttachesToken(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != "POST" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("request id header missing")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok123"})
	})

	id, err := c.StudentLogin(context.Background(), "s@x.edu", "pw", "Acme College", "key9")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Token != "tok123" || id.Email != "s@x.edu" || id.College != "Acme College" {
		t.Fatalf("identity = %+v", id)
	}
	if c.StudentToken() != "tok123" {
		t.Fatal("token not attached to client")
	}
	if gotBody["college_passkey"] != "key9" {
		t.Fatalf("payload = %v", gotBody)
	}
}

// A login can land while another request is reading the token; the guarded
// accessors must keep that safe.
func TestTokenSwapDuringRequests(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		endsAt := time.Now().UTC().Add(time.Hour).Format("2006-01-02T15:04:05")
		writeJSON(w, http.StatusOK, map[string]any{
			"attempt_id": 42, "exam_id": 9, "ends_at": endsAt,
		})
	})
	c.SetStudentToken("first")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SetStudentToken("second")
			_, _ = c.StartExamAuto(context.Background())
			_ = c.StudentToken()
		}()
	}
	wg.Wait()

	if got := c.StudentToken(); got != "second" {
		t.Fatalf("token = %q, want the swapped-in value", got)
	}
}

func TestStudentLoginFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
	})

	_, err := c.StudentLogin(context.Background(), "s@x.edu", "bad", "Acme", "key")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusUnauthorized || statusErr.Detail() != "Invalid credentials" {
		t.Fatalf("status error = %+v detail %q", statusErr, statusErr.Detail())
	}
	if c.StudentToken() != "" {
		t.Fatal("failed login attached a token")
	}
}

func TestStartExamAuto(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    any
		wantErr error
		wantID  int
	}{
		{
			name:   "valid attempt",
			status: http.StatusOK,
			body:   map[string]any{"attempt_id": 42, "exam_id": 9, "ends_at": "2026-03-01T10:00:00"},
			wantID: 42,
		},
		{
			name:    "zero attempt id on 200",
			status:  http.StatusOK,
			body:    map[string]any{"attempt_id": 0, "ends_at": "2026-03-01T10:00:00"},
			wantErr: ErrInvalidAttempt,
		},
		{
			name:    "missing ends_at on 200",
			status:  http.StatusOK,
			body:    map[string]any{"attempt_id": 42},
			wantErr: ErrInvalidAttempt,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/exam/exams/start/auto" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("auth header = %q", r.Header.Get("Authorization"))
				}
				writeJSON(w, tc.status, tc.body)
			})
			c.SetStudentToken("tok")

			attempt, err := c.StartExamAuto(context.Background())
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			if attempt.AttemptID != tc.wantID {
				t.Fatalf("attempt = %+v", attempt)
			}
		})
	}
}

func TestSubmitAttemptOutcomes(t *testing.T) {
	t.Run("success sends empty slice for nil answers", func(t *testing.T) {
		var rawAnswers json.RawMessage
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var probe map[string]json.RawMessage
			_ = json.NewDecoder(r.Body).Decode(&probe)
			rawAnswers = probe["answers"]
			w.WriteHeader(http.StatusOK)
		})
		c.SetStudentToken("tok")

		if err := c.SubmitAttempt(context.Background(), 42, nil); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if string(rawAnswers) != "[]" {
			t.Fatalf("answers marshaled as %s, want []", rawAnswers)
		}
	})

	t.Run("already submitted maps to sentinel", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]string{"detail": "Already submitted"})
		})
		c.SetStudentToken("tok")

		err := c.SubmitAttempt(context.Background(), 42, []model.Answer{{QuestionID: 1, ChosenOptionID: 10}})
		if !errors.Is(err, ErrAlreadySubmitted) {
			t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
		}
	})

	t.Run("other rejection stays a status error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]string{"detail": "Attempt window closed"})
		})
		c.SetStudentToken("tok")

		err := c.SubmitAttempt(context.Background(), 42, nil)
		if errors.Is(err, ErrAlreadySubmitted) {
			t.Fatal("non-matching detail mapped to ErrAlreadySubmitted")
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Status != http.StatusConflict {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestNetworkErrorIsNotStatusError(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, zerolog.Nop())
	_, err := c.FetchPaper(context.Background(), 42)
	if err == nil {
		t.Fatal("expected network error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatal("transport failure wrongly mapped to StatusError")
	}
}

func TestUpdateCollegeInjectsIsActive(t *testing.T) {
	var gotBody map[string]any
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})
	c.SetAdminToken("admtok")

	err := c.UpdateCollege(context.Background(), 7, model.CollegeRequest{
		Name:             "Acme",
		Passkey:          "key",
		PasskeyExpiresAt: "2026-12-31T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotPath != "/admin/colleges/7" {
		t.Fatalf("path = %s", gotPath)
	}
	if active, ok := gotBody["is_active"].(bool); !ok || !active {
		t.Fatalf("is_active not injected: %v", gotBody)
	}
}

func TestDeleteCollegeUsesSoftDelete(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	})
	c.SetAdminToken("admtok")

	if err := c.DeleteCollege(context.Background(), 7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotQuery != "hard=false" {
		t.Fatalf("query = %q, want hard=false", gotQuery)
	}
}

func TestRecruiterContactPostsToStudentPath(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})

	form := model.RecruiterContact{
		Email:              "hr@corp.com",
		CompanyName:        "Corp",
		Designation:        "Lead",
		PointOfContactName: "Sam",
		Phone:              "555",
		UsingPlatform:      "yes",
	}
	if err := c.SubmitRecruiterContact(context.Background(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gotPath != "/contact/student" {
		t.Fatalf("recruiter form posted to %s", gotPath)
	}
	if _, ok := gotBody["extras"].(map[string]any); !ok {
		t.Fatalf("extras not an object: %v", gotBody["extras"])
	}
}

// An invalid form never reaches the wire.
func TestContactValidationShortCircuits(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	err := c.SubmitStudentContact(context.Background(), model.StudentContact{Email: "not-an-email"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var fieldErr *validator.FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("err = %T %v, want FieldError", err, err)
	}
	if len(fieldErr.Fields) == 0 {
		t.Fatal("no field messages")
	}
	if called {
		t.Fatal("invalid form hit the backend")
	}
}
