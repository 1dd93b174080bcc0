package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/laurateck/examdesk/internal/api"
	"github.com/laurateck/examdesk/internal/config"
	"github.com/laurateck/examdesk/internal/media"
	"github.com/laurateck/examdesk/internal/store"
)

// fakeUpstream is a scripted exam backend.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	post := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.NotFound(w, r)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/auth/login", post(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"Invalid credentials"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok123"}`)
	}))
	mux.HandleFunc("/exam/exams/start/auto", post(func(w http.ResponseWriter, r *http.Request) {
		endsAt := time.Now().UTC().Add(time.Hour).Format("2006-01-02T15:04:05")
		fmt.Fprintf(w, `{"attempt_id":42,"exam_id":9,"ends_at":%q}`, endsAt)
	}))
	mux.HandleFunc("/exam/attempts/42/paper", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"attempt_id":42,"exam_id":9,"questions":[
			{"question_id":1,"subject":"Math","text":"2+2?","options":[{"id":10,"text":"4"},{"id":11,"text":"5"}]},
			{"question_id":2,"subject":"English","text":"Synonym of big?","options":[{"id":20,"text":"large"},{"id":21,"text":"tiny"}]}
		]}`)
	})
	mux.HandleFunc("/exam/attempts/42/submit", post(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("/contact/", post(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGateway(t *testing.T) *gin.Engine {
	t.Helper()
	upstream := fakeUpstream(t)

	pin, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	cfg := &config.Config{
		APIBaseURL:        upstream.URL,
		RequestTimeout:    5 * time.Second,
		EndsAtOffset:      0, // upstream above emits UTC-correct naive timestamps
		GinMode:           gin.TestMode,
		SupervisorPINHash: string(pin),
	}

	client := api.New(cfg.APIBaseURL, cfg.RequestTimeout, zerolog.Nop())
	handler := NewSessionHandler(cfg, client, store.NewMemory(), &media.NullDevice{}, zerolog.Nop())
	return SetupRouter(cfg, handler, zerolog.Nop())
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data  map[string]any `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if envelope.Error != nil {
		t.Fatalf("unexpected error response: %+v", envelope.Error)
	}
	return envelope.Data
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope.Error.Code
}

func loginAndPreflight(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := do(t, r, "POST", "/api/login", map[string]string{
		"email": "s@x.edu", "password": "pw",
		"college_name": "Acme", "college_passkey": "key",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	for _, action := range []string{"agree", "camera", "microphone", "photo"} {
		if w := do(t, r, "POST", "/api/preflight/"+action, nil); w.Code != http.StatusOK {
			t.Fatalf("preflight %s status = %d", action, w.Code)
		}
	}
}

func TestGatewayRequiresLogin(t *testing.T) {
	r := newTestGateway(t)
	w := do(t, r, "GET", "/api/preflight", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if code := errCode(t, w); code != "NOT_LOGGED_IN" {
		t.Fatalf("error code = %q", code)
	}
}

func TestGatewayBlocksStartBeforePreflight(t *testing.T) {
	r := newTestGateway(t)
	w := do(t, r, "POST", "/api/login", map[string]string{
		"email": "s@x.edu", "password": "pw",
		"college_name": "Acme", "college_passkey": "key",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	if w := do(t, r, "POST", "/api/exam/start", nil); w.Code != http.StatusConflict {
		t.Fatalf("start before preflight status = %d", w.Code)
	}
}

func TestGatewayFullExamFlow(t *testing.T) {
	r := newTestGateway(t)
	loginAndPreflight(t, r)

	data := decodeData(t, do(t, r, "POST", "/api/exam/start", nil))
	if data["attempt_id"].(float64) != 42 {
		t.Fatalf("start data = %v", data)
	}
	subjects := data["subjects"].([]any)
	if len(subjects) != 2 {
		t.Fatalf("subjects = %v", subjects)
	}

	// Math: answer its single question and finalize the section.
	if w := do(t, r, "POST", "/api/exam/subject/Math/start", nil); w.Code != http.StatusOK {
		t.Fatalf("subject start status = %d: %s", w.Code, w.Body.String())
	}
	q := decodeData(t, do(t, r, "GET", "/api/exam/question", nil))
	if q["total"].(float64) != 1 {
		t.Fatalf("question view = %v", q)
	}
	if w := do(t, r, "POST", "/api/exam/answer", map[string]int{"option_id": 10}); w.Code != http.StatusOK {
		t.Fatalf("answer status = %d: %s", w.Code, w.Body.String())
	}
	section := decodeData(t, do(t, r, "POST", "/api/exam/section/submit", nil))
	if section["answered"].(float64) != 1 {
		t.Fatalf("section = %v", section)
	}

	// Re-entering a completed section is refused.
	if w := do(t, r, "POST", "/api/exam/subject/Math/start", nil); w.Code != http.StatusConflict {
		t.Fatalf("completed section restart status = %d", w.Code)
	}

	// Final submit with English pending is gated; force is the escape hatch.
	w := do(t, r, "POST", "/api/exam/submit", map[string]bool{"time_up": false})
	if w.Code != http.StatusConflict {
		t.Fatalf("gated submit status = %d", w.Code)
	}
	summary := decodeData(t, do(t, r, "POST", "/api/exam/submit", map[string]bool{"time_up": true}))
	if summary["questions_attempted"].(float64) != 1 || summary["total_questions"].(float64) != 2 {
		t.Fatalf("summary = %v", summary)
	}

	// The session is torn down after submit.
	if w := do(t, r, "GET", "/api/exam/overview", nil); w.Code != http.StatusConflict {
		t.Fatalf("post-submit overview status = %d", w.Code)
	}
}

func TestGatewayAnswerRequiresOptionID(t *testing.T) {
	r := newTestGateway(t)
	loginAndPreflight(t, r)
	decodeData(t, do(t, r, "POST", "/api/exam/start", nil))

	if w := do(t, r, "POST", "/api/exam/subject/Math/start", nil); w.Code != http.StatusOK {
		t.Fatalf("subject start status = %d", w.Code)
	}
	w := do(t, r, "POST", "/api/exam/answer", map[string]int{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty answer status = %d", w.Code)
	}
	if code := errCode(t, w); code != "VALIDATION_ERROR" {
		t.Fatalf("error code = %q", code)
	}
}

func TestGatewayNavigationIsForwardOnly(t *testing.T) {
	r := newTestGateway(t)
	loginAndPreflight(t, r)
	decodeData(t, do(t, r, "POST", "/api/exam/start", nil))

	if w := do(t, r, "POST", "/api/exam/subject/English/start", nil); w.Code != http.StatusOK {
		t.Fatalf("subject start status = %d", w.Code)
	}
	w := do(t, r, "POST", "/api/exam/navigate/jump", map[string]int{"index": -1})
	if w.Code != http.StatusConflict {
		t.Fatalf("backward jump status = %d", w.Code)
	}
}

func TestGatewayContactForms(t *testing.T) {
	r := newTestGateway(t)

	// Contact forms need no login.
	valid := map[string]string{
		"email": "s@x.edu", "name": "S", "qualification": "BSc",
		"passedout_year": "2025", "college": "Acme", "purpose": "exam",
		"phone": "555",
	}
	if w := do(t, r, "POST", "/api/contact/student", valid); w.Code != http.StatusOK {
		t.Fatalf("valid form status = %d: %s", w.Code, w.Body.String())
	}

	// Client-side validation rejects before the upstream call.
	w := do(t, r, "POST", "/api/contact/student", map[string]string{"email": "s@x.edu"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid form status = %d", w.Code)
	}
	if code := errCode(t, w); code != "VALIDATION_ERROR" {
		t.Fatalf("error code = %q", code)
	}

	if w := do(t, r, "POST", "/api/contact/vendor", map[string]string{}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown kind status = %d", w.Code)
	}
}

func TestGatewaySupervisorUnlock(t *testing.T) {
	r := newTestGateway(t)
	loginAndPreflight(t, r)

	w := do(t, r, "POST", "/api/supervisor/unlock", map[string]string{"pin": "9999"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad pin status = %d", w.Code)
	}

	if w := do(t, r, "POST", "/api/supervisor/unlock", map[string]string{"pin": "4321"}); w.Code != http.StatusOK {
		t.Fatalf("unlock status = %d: %s", w.Code, w.Body.String())
	}
	// Unlock drops the login.
	if w := do(t, r, "GET", "/api/preflight", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("post-unlock status = %d", w.Code)
	}
}
