package appraisalshandler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/appraisals"
	"appraisal/internal/domain/auth"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service *appraisals.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *appraisals.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisals", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/me", h.handleMine)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/{appraisalID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/{appraisalID}/summary.pdf", h.handleSummaryPDF)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/{appraisalID}/self/save", h.handleSelfSave)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/{appraisalID}/self/submit", h.handleSelfSubmit)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/{appraisalID}/manager/submit", h.handleManagerSubmit)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/{appraisalID}/meeting", h.handleMeeting)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/{appraisalID}/acknowledge", h.handleAcknowledge)
		r.With(middleware.RequirePermission(auth.PermAppraisalsAdmin, h.Perms)).Post("/{appraisalID}/resync", h.handleResync)
		r.With(middleware.RequirePermission(auth.PermAppraisalsAdmin, h.Perms)).Post("/{appraisalID}/hr-review", h.handleHRReview)
	})
}

func actorOf(user auth.UserContext) appraisals.Actor {
	return appraisals.Actor{ID: user.UserID, Role: user.RoleName}
}

type selfPayload struct {
	GoalRatings map[string]appraisals.GoalRating `json:"goalRatings"`
	Answers     map[string]any                   `json:"answers"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	q := r.URL.Query()
	v := shared.NewValidator()
	filter := appraisals.ListFilter{
		Scope:   strings.ToLower(strings.TrimSpace(q.Get("scope"))),
		CycleID: shared.QueryID(v, r, "cycleId"),
		Status:  strings.TrimSpace(q.Get("status")),
	}
	employeeID := shared.QueryID(v, r, "employeeId")
	v.Enum("scope", filter.Scope, []string{appraisals.ScopeMine, appraisals.ScopeTeam, appraisals.ScopeAll}, "invalid scope")
	v.Enum("status", filter.Status, appraisals.Statuses, "invalid status")
	if v.Reject(w, requestID) {
		return
	}
	if filter.Scope != appraisals.ScopeMine && filter.Scope != "" {
		filter.EmployeeID = employeeID
	}

	page := shared.ParsePagination(r, 50, 200)
	items, err := h.Service.List(r.Context(), actorOf(user), filter)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	total := len(items)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	api.Success(w, shared.NewPage(items[start:end], total, page), requestID)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	a, err := h.Service.Ensure(r.Context(), user.UserID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, a, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	a, _, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, a, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	a, _, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	sum, err := h.Service.Summary(r.Context(), a.ID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	var buf bytes.Buffer
	if err := appraisals.RenderPDF(&buf, sum); err != nil {
		slog.Error("appraisal summary render failed", "err", err, "appraisalId", a.ID)
		api.Fail(w, http.StatusInternalServerError, "INTERNAL", "failed to render summary", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=appraisal-%s.pdf", a.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("appraisal summary write failed", "err", err)
	}
}

func (h *Handler) handleSelfSave(w http.ResponseWriter, r *http.Request) {
	h.self(w, r, h.Service.SelfSave)
}

func (h *Handler) handleSelfSubmit(w http.ResponseWriter, r *http.Request) {
	h.self(w, r, h.Service.SelfSubmit)
}

type selfStep func(ctx context.Context, id string, actor appraisals.Actor, in appraisals.SelfInput) (appraisals.Appraisal, error)

func (h *Handler) self(w http.ResponseWriter, r *http.Request, step selfStep) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "appraisalID", requestID)
	if !ok {
		return
	}

	var payload selfPayload
	if !shared.DecodeJSON(w, r, &payload, true, requestID) {
		return
	}
	a, err := step(r.Context(), id, actorOf(user), appraisals.SelfInput{
		GoalRatings: payload.GoalRatings,
		Answers:     payload.Answers,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, a, requestID)
}

func (h *Handler) handleManagerSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "appraisalID", requestID)
	if !ok {
		return
	}

	var payload struct {
		GoalRatings   map[string]appraisals.GoalRating `json:"goalRatings"`
		Assessment    map[string]any                   `json:"assessment"`
		OverallRating *float64                         `json:"overallRating"`
		MeetingDate   *string                          `json:"meetingDate"`
		MeetingNotes  string                           `json:"meetingNotes"`
	}
	if !shared.DecodeJSON(w, r, &payload, true, requestID) {
		return
	}
	v := shared.NewValidator()
	in := appraisals.ManagerInput{
		GoalRatings:  payload.GoalRatings,
		Assessment:   payload.Assessment,
		MeetingDate:  shared.OptionalDate(v, "meetingDate", payload.MeetingDate),
		MeetingNotes: payload.MeetingNotes,
	}
	if payload.OverallRating != nil {
		rating := *payload.OverallRating
		if rating != math.Trunc(rating) {
			v.Add("overallRating", "must be a whole number")
		} else {
			n := int(rating)
			in.OverallRating = &n
		}
	}
	if v.Reject(w, requestID) {
		return
	}

	a, err := h.Service.ManagerSubmit(r.Context(), id, actorOf(user), in)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, a, requestID)
}

func (h *Handler) handleMeeting(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "appraisalID", requestID)
	if !ok {
		return
	}

	var payload struct {
		Date  string `json:"date"`
		Notes string `json:"notes"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	date, _ := v.Date("date", payload.Date)
	if v.Reject(w, requestID) {
		return
	}

	a, err := h.Service.LogMeeting(r.Context(), id, actorOf(user), &date, payload.Notes)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, a, requestID)
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "appraisalID", requestID)
	if !ok {
		return
	}

	var payload struct {
		Comments string `json:"comments"`
	}
	if !shared.DecodeJSON(w, r, &payload, true, requestID) {
		return
	}
	a, err := h.Service.Acknowledge(r.Context(), id, actorOf(user), payload.Comments)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, a, requestID)
}

// handleResync recomputes the status. A body carrying "goals" uses that set
// as-is, including an empty list; without it the goals are fetched.
func (h *Handler) handleResync(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "appraisalID", requestID)
	if !ok {
		return
	}

	var payload struct {
		Goals *[]appraisals.GoalSnapshot `json:"goals"`
	}
	if !shared.DecodeJSON(w, r, &payload, true, requestID) {
		return
	}
	var goals []appraisals.GoalSnapshot
	if payload.Goals != nil {
		goals = *payload.Goals
	}

	a, err := h.Service.Resync(r.Context(), id, goals)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, a, requestID)
}

func (h *Handler) handleHRReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "appraisalID", requestID)
	if !ok {
		return
	}

	var payload struct {
		Approve *bool `json:"approve"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	if payload.Approve == nil {
		v := shared.NewValidator()
		v.Add("approve", "approve is required")
		v.Reject(w, requestID)
		return
	}

	a, err := h.Service.ResolveHRReview(r.Context(), id, *payload.Approve, actorOf(user))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if a == nil {
		api.Success(w, map[string]string{"status": "removed", "appraisalId": id}, requestID)
		return
	}
	api.Success(w, a, requestID)
}

func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (appraisals.Appraisal, auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return appraisals.Appraisal{}, user, false
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "appraisalID", requestID)
	if !ok {
		return appraisals.Appraisal{}, user, false
	}
	a, err := h.Service.Get(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID)
		return appraisals.Appraisal{}, user, false
	}
	visible, err := h.Service.CanView(r.Context(), a, actorOf(user))
	if err != nil {
		api.FailError(w, err, requestID)
		return appraisals.Appraisal{}, user, false
	}
	if !visible {
		api.FailError(w, apperror.Forbidden("not allowed to view this appraisal").With("appraisalId", a.ID), requestID)
		return appraisals.Appraisal{}, user, false
	}
	return a, user, true
}
