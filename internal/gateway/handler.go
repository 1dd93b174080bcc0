package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/laurateck/examdesk/internal/api"
	"github.com/laurateck/examdesk/internal/config"
	"github.com/laurateck/examdesk/internal/media"
	"github.com/laurateck/examdesk/internal/model"
	"github.com/laurateck/examdesk/internal/response"
	"github.com/laurateck/examdesk/internal/session"
	"github.com/laurateck/examdesk/internal/store"
	"github.com/laurateck/examdesk/internal/validator"
)

// SessionHandler exposes one student's session to the local shell. A kiosk
// hosts exactly one session at a time, so the handler holds it directly.
type SessionHandler struct {
	cfg    *config.Config
	client *api.Client
	store  store.Store
	device media.Device
	log    zerolog.Logger

	mu       sync.Mutex
	identity model.Identity
	capture  *media.Capture
	overview *session.Overview
	runner   *session.Runner
}

// NewSessionHandler creates the handler and rehydrates any persisted login.
func NewSessionHandler(cfg *config.Config, client *api.Client, st store.Store, device media.Device, log zerolog.Logger) *SessionHandler {
	h := &SessionHandler{
		cfg:    cfg,
		client: client,
		store:  st,
		device: device,
		log:    log.With().Str("component", "gateway").Logger(),
	}
	if id, err := store.LoadIdentity(context.Background(), st, store.NSStudentIdentity); err == nil {
		h.identity = id
		client.SetStudentToken(id.Token)
	}
	return h
}

// ─── Auth ──────────────────────────────────────────────────────────

type loginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	CollegeName    string `json:"college_name" validate:"required"`
	CollegePasskey string `json:"college_passkey" validate:"required"`
}

// Login authenticates the student and persists the identity so a kiosk
// reboot keeps the session.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if fields := validator.Check(&req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	identity, err := h.client.StudentLogin(c.Request.Context(), req.Email, req.Password, req.CollegeName, req.CollegePasskey)
	if err != nil {
		h.failUpstream(c, err, response.ErrLoginFailed)
		return
	}

	h.mu.Lock()
	h.identity = identity
	h.mu.Unlock()

	if err := store.SaveIdentity(c.Request.Context(), h.store, store.NSStudentIdentity, identity); err != nil {
		h.log.Warn().Err(err).Msg("Failed to persist identity")
	}
	response.Success(c, http.StatusOK, gin.H{"email": identity.Email, "college": identity.College})
}

// Colleges proxies the public college list for the login selector.
func (h *SessionHandler) Colleges(c *gin.Context) {
	colleges, err := h.client.ListPublicColleges(c.Request.Context())
	if err != nil {
		h.failUpstream(c, err, response.ErrBackend)
		return
	}
	response.Success(c, http.StatusOK, colleges)
}

// Contact forwards one of the three public contact-us forms. No login
// required; field validation happens client-side before the upstream call.
func (h *SessionHandler) Contact(c *gin.Context) {
	var err error
	switch model.ContactKind(c.Param("kind")) {
	case model.ContactStudent:
		var form model.StudentContact
		if bindErr := c.ShouldBindJSON(&form); bindErr != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		err = h.client.SubmitStudentContact(c.Request.Context(), form)
	case model.ContactCollege:
		var form model.CollegeContact
		if bindErr := c.ShouldBindJSON(&form); bindErr != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		err = h.client.SubmitCollegeContact(c.Request.Context(), form)
	case model.ContactRecruiter:
		var form model.RecruiterContact
		if bindErr := c.ShouldBindJSON(&form); bindErr != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		err = h.client.SubmitRecruiterContact(c.Request.Context(), form)
	default:
		response.Fail(c, http.StatusNotFound, response.ErrInvalidPayload)
		return
	}

	if err != nil {
		var fieldErr *validator.FieldError
		if errors.As(err, &fieldErr) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fieldErr.Fields)
			return
		}
		h.failUpstream(c, err, response.ErrBackend)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"submitted": true})
}

// ─── Preflight ─────────────────────────────────────────────────────

func (h *SessionHandler) requireLogin(c *gin.Context) bool {
	h.mu.Lock()
	ok := h.identity.Authenticated()
	h.mu.Unlock()
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrNotLoggedIn)
	}
	return ok
}

// ensureCapture lazily creates the capture object for this session.
func (h *SessionHandler) ensureCapture() *media.Capture {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capture == nil {
		h.capture = media.NewCapture(h.device, h.log)
	}
	return h.capture
}

// Preflight reports the four gates.
func (h *SessionHandler) Preflight(c *gin.Context) {
	if !h.requireLogin(c) {
		return
	}
	capture := h.ensureCapture()
	response.Success(c, http.StatusOK, gin.H{
		"camera":     capture.CameraGranted(),
		"microphone": capture.MicrophoneGranted(),
		"photo":      capture.Photo() != nil,
		"ready":      capture.Ready(),
	})
}

// PreflightAction flips one gate: agree, camera, microphone, photo, retake.
func (h *SessionHandler) PreflightAction(c *gin.Context) {
	if !h.requireLogin(c) {
		return
	}
	capture := h.ensureCapture()

	var err error
	switch c.Param("action") {
	case "agree":
		capture.Agree()
	case "camera":
		err = capture.RequestCamera(c.Request.Context())
	case "microphone":
		err = capture.RequestMicrophone(c.Request.Context())
	case "photo":
		err = capture.TakePhoto()
	case "retake":
		capture.RetakePhoto()
	default:
		response.Fail(c, http.StatusNotFound, response.ErrInvalidPayload)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusConflict, response.ErrPreflightIncomplete)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ready": capture.Ready()})
}

// ─── Exam flow ─────────────────────────────────────────────────────

// StartExam gates on preflight, starts the attempt and loads the overview.
func (h *SessionHandler) StartExam(c *gin.Context) {
	if !h.requireLogin(c) {
		return
	}
	capture := h.ensureCapture()
	if !capture.Ready() {
		response.Fail(c, http.StatusConflict, response.ErrPreflightIncomplete)
		return
	}

	attempt, err := h.client.StartExamAuto(c.Request.Context())
	if err != nil {
		if errors.Is(err, api.ErrInvalidAttempt) {
			response.Fail(c, http.StatusBadGateway, response.ErrInvalidAttempt)
			return
		}
		h.failUpstream(c, err, response.ErrBackend)
		return
	}

	ov, err := session.NewOverview(c.Request.Context(), h.client, h.store, attempt,
		h.cfg.EndsAtOffset, h.log, session.WithMedia(capture))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if err := ov.Load(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusBadGateway, response.ErrPaperLoadFailed)
		return
	}

	h.mu.Lock()
	h.overview = ov
	h.runner = nil
	h.mu.Unlock()

	response.Success(c, http.StatusOK, h.overviewView(ov))
}

func (h *SessionHandler) currentOverview(c *gin.Context) *session.Overview {
	h.mu.Lock()
	ov := h.overview
	h.mu.Unlock()
	if ov == nil {
		response.Fail(c, http.StatusConflict, response.ErrNoActiveAttempt)
	}
	return ov
}

func (h *SessionHandler) overviewView(ov *session.Overview) gin.H {
	paper := ov.Paper()
	subjects := make([]gin.H, 0, len(ov.Subjects()))
	for _, s := range ov.Subjects() {
		subjects = append(subjects, gin.H{
			"name":      s,
			"questions": len(paper.QuestionsFor(s)),
			"completed": ov.SubjectCompleted(s),
		})
	}
	tick := ov.Countdown().Observe()
	return gin.H{
		"attempt_id":     ov.Attempt().AttemptID,
		"state":          ov.State(),
		"subjects":       subjects,
		"all_completed":  ov.AllCompleted(),
		"remaining_secs": int(tick.Remaining.Seconds()),
		"expired":        tick.Expired,
	}
}

// Overview returns the session hub view.
func (h *SessionHandler) Overview(c *gin.Context) {
	ov := h.currentOverview(c)
	if ov == nil {
		return
	}
	response.Success(c, http.StatusOK, h.overviewView(ov))
}

// StartSubject hands the shell a question runner for one section.
func (h *SessionHandler) StartSubject(c *gin.Context) {
	ov := h.currentOverview(c)
	if ov == nil {
		return
	}

	runner, err := ov.StartSubject(c.Param("subject"))
	if err != nil {
		h.failSession(c, err)
		return
	}

	h.mu.Lock()
	h.runner = runner
	h.mu.Unlock()

	response.Success(c, http.StatusOK, gin.H{
		"subject":   runner.Subject(),
		"questions": runner.Len(),
	})
}

func (h *SessionHandler) currentRunner(c *gin.Context) *session.Runner {
	h.mu.Lock()
	r := h.runner
	h.mu.Unlock()
	if r == nil {
		response.Fail(c, http.StatusConflict, response.ErrNoActiveAttempt)
	}
	return r
}

// Question returns the current question with countdown advisories.
func (h *SessionHandler) Question(c *gin.Context) {
	ov := h.currentOverview(c)
	if ov == nil {
		return
	}
	r := h.currentRunner(c)
	if r == nil {
		return
	}

	q := r.Current()
	chosen, answered := r.Chosen(q.QuestionID)
	tick := ov.Countdown().Observe()

	view := gin.H{
		"index":          r.Index(),
		"total":          r.Len(),
		"question":       q,
		"on_last":        r.OnLast(),
		"remaining_secs": int(tick.Remaining.Seconds()),
		"warn":           tick.Warn,
		"expired":        tick.Expired,
	}
	if answered {
		view["chosen_option_id"] = chosen
	}
	response.Success(c, http.StatusOK, view)
}

type answerRequest struct {
	OptionID int `json:"option_id" validate:"required"`
}

// Answer records the chosen option for the current question.
func (h *SessionHandler) Answer(c *gin.Context) {
	r := h.currentRunner(c)
	if r == nil {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if fields := validator.Check(&req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := r.Choose(req.OptionID); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answered": r.Answered()})
}

type jumpRequest struct {
	Index int `json:"index"`
}

// Navigate moves forward: "next" or a jump to a later index.
func (h *SessionHandler) Navigate(c *gin.Context) {
	r := h.currentRunner(c)
	if r == nil {
		return
	}

	switch c.Param("action") {
	case "next":
		r.Next()
	case "jump":
		var req jumpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		if err := r.JumpTo(req.Index); err != nil {
			response.Fail(c, http.StatusConflict, response.ErrNoBacktrack)
			return
		}
	default:
		response.Fail(c, http.StatusNotFound, response.ErrInvalidPayload)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"index": r.Index()})
}

type sectionSubmitRequest struct {
	TimeUp bool `json:"time_up"`
}

// SubmitSection finalizes the active section. With time_up set the whole
// attempt is submitted immediately afterwards.
func (h *SessionHandler) SubmitSection(c *gin.Context) {
	ov := h.currentOverview(c)
	if ov == nil {
		return
	}
	r := h.currentRunner(c)
	if r == nil {
		return
	}

	var req sectionSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	result := r.Finish(req.TimeUp)
	if err := ov.RecordSubject(c.Request.Context(), result); err != nil {
		h.failSession(c, err)
		return
	}

	h.mu.Lock()
	h.runner = nil
	h.mu.Unlock()

	if result.TimeUp {
		h.finalSubmit(c, ov, true)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"subject":  result.Subject,
		"answered": len(result.Answers),
		"total":    result.TotalQuestions,
	})
}

// Submit runs the final submission over all recorded sections.
func (h *SessionHandler) Submit(c *gin.Context) {
	ov := h.currentOverview(c)
	if ov == nil {
		return
	}
	var req sectionSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	h.finalSubmit(c, ov, req.TimeUp)
}

func (h *SessionHandler) finalSubmit(c *gin.Context, ov *session.Overview, force bool) {
	summary, err := ov.FinalSubmit(c.Request.Context(), force)
	if err != nil {
		h.failSession(c, err)
		return
	}

	h.mu.Lock()
	h.overview = nil
	h.runner = nil
	h.capture = nil
	h.mu.Unlock()

	response.Success(c, http.StatusOK, gin.H{
		"questions_attempted": summary.QuestionsAttempted,
		"total_questions":     summary.TotalQuestions,
		"time_taken_secs":     int(summary.TimeTaken.Seconds()),
		"already_submitted":   summary.AlreadySubmitted,
		"auto_return_secs":    int(session.SuccessAutoReturn.Seconds()),
	})
}

// ─── Supervisor ────────────────────────────────────────────────────

type unlockRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// Unlock verifies the supervisor PIN so a proctor can release the kiosk.
// The hash lives in config; an empty hash disables unlocking entirely.
func (h *SessionHandler) Unlock(c *gin.Context) {
	if h.cfg.SupervisorPINHash == "" {
		response.Fail(c, http.StatusForbidden, response.ErrSupervisorDisabled)
		return
	}
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.SupervisorPINHash), []byte(req.PIN)); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrSupervisorPIN)
		return
	}

	h.mu.Lock()
	if h.overview != nil {
		_ = h.overview.Close()
	} else if h.capture != nil {
		_ = h.capture.Close()
	}
	h.overview = nil
	h.runner = nil
	h.capture = nil
	h.identity = model.Identity{}
	h.mu.Unlock()

	if err := store.ClearIdentity(c.Request.Context(), h.store, store.NSStudentIdentity); err != nil {
		h.log.Warn().Err(err).Msg("Failed to clear identity")
	}
	response.Success(c, http.StatusOK, gin.H{"unlocked": true})
}

// ─── Error mapping ─────────────────────────────────────────────────

func (h *SessionHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSubjectCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSubjectCompleted)
	case errors.Is(err, session.ErrUnknownSubject):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownSubject)
	case errors.Is(err, session.ErrSectionsPending):
		response.Fail(c, http.StatusConflict, response.ErrSectionsPending)
	case errors.Is(err, session.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, session.ErrNotReady):
		response.Fail(c, http.StatusConflict, response.ErrNoActiveAttempt)
	default:
		h.failUpstream(c, err, response.ErrSubmitFailed)
	}
}

// failUpstream distinguishes backend rejections from transport failures.
func (h *SessionHandler) failUpstream(c *gin.Context, err error, code response.ErrCode) {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) {
		h.log.Warn().Int("status", statusErr.Status).Msg("Backend rejected request")
		response.Fail(c, http.StatusBadGateway, code)
		return
	}
	h.log.Warn().Err(err).Msg("Upstream call failed")
	response.Fail(c, http.StatusBadGateway, response.ErrNetwork)
}
