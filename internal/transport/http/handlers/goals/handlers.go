package goalshandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/goals"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service     *goals.Service
	Directory   directory.Directory
	Perms       middleware.PermissionStore
	Idempotency middleware.IdempotencyBackend
}

func NewHandler(service *goals.Service, dir directory.Directory, perms middleware.PermissionStore, idempotency middleware.IdempotencyBackend) *Handler {
	return &Handler{Service: service, Directory: dir, Perms: perms, Idempotency: idempotency}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/", h.handleList)
		r.With(
			middleware.RequirePermission(auth.PermGoalsWrite, h.Perms),
			middleware.Idempotent(h.Idempotency, "goals.create"),
		).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/readiness", h.handleReadiness)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/stats", h.handleStats)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Put("/{goalID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Patch("/{goalID}/progress", h.handleProgress)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Delete("/{goalID}", h.handleDelete)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Post("/{goalID}/submit", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermGoalsApprove, h.Perms)).Post("/{goalID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermGoalsApprove, h.Perms)).Post("/{goalID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}/audit", h.handleAudit)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}/versions", h.handleVersions)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}/parents", h.handleParents)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}/key-results", h.handleKeyResults)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Post("/{goalID}/key-results", h.handleAddKeyResult)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Put("/{goalID}/key-results/{keyResultID}", h.handleUpdateKeyResult)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}/comments", h.handleComments)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Post("/{goalID}/comments", h.handleAddComment)
	})
}

type contentPayload struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Priority     string  `json:"priority"`
	Weight       float64 `json:"weight"`
	StartDate    *string `json:"startDate"`
	TargetDate   *string `json:"targetDate"`
	ParentGoalID string  `json:"parentGoalId"`
}

func (p contentPayload) content(v *shared.Validator) goals.Content {
	v.Required("title", p.Title, "title is required")
	v.Enum("priority", p.Priority, goals.Priorities, "invalid priority")
	if p.Weight < 0 || p.Weight > 100 {
		v.Add("weight", "must be between 0 and 100")
	}
	start := shared.OptionalDate(v, "startDate", p.StartDate)
	target := shared.OptionalDate(v, "targetDate", p.TargetDate)
	if start != nil && target != nil {
		v.DateOrder("startDate", *start, "targetDate", *target)
	}
	return goals.Content{
		Title:        strings.TrimSpace(p.Title),
		Description:  strings.TrimSpace(p.Description),
		Category:     strings.TrimSpace(p.Category),
		Priority:     strings.ToLower(strings.TrimSpace(p.Priority)),
		Weight:       p.Weight,
		StartDate:    start,
		TargetDate:   target,
		ParentGoalID: strings.TrimSpace(p.ParentGoalID),
	}
}

func actorOf(user auth.UserContext) goals.Actor {
	return goals.Actor{ID: user.UserID, Role: user.RoleName}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	v := shared.NewValidator()
	filter := goals.ListFilter{
		EmployeeID:     shared.QueryID(v, r, "employeeId"),
		CycleID:        shared.QueryID(v, r, "cycleId"),
		ApprovalStatus: strings.TrimSpace(r.URL.Query().Get("approvalStatus")),
	}
	v.Enum("approvalStatus", filter.ApprovalStatus, goals.ApprovalStatuses, "invalid approval status")
	if v.Reject(w, requestID) {
		return
	}
	if filter.EmployeeID == "" && !user.IsHR() {
		filter.EmployeeID = user.UserID
	}
	if filter.EmployeeID != "" {
		if !h.allowedFor(w, r, user, filter.EmployeeID) {
			return
		}
	}

	items, err := h.Service.List(r.Context(), filter)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if items == nil {
		items = []goals.Goal{}
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		contentPayload
		EmployeeID string `json:"employeeId"`
		CycleID    string `json:"cycleId"`
		Progress   *int   `json:"progress"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	content := payload.content(v)
	v.Range("progress", payload.Progress, 0, 100)
	if v.Reject(w, requestID) {
		return
	}

	in := goals.CreateInput{
		EmployeeID: strings.TrimSpace(payload.EmployeeID),
		CycleID:    strings.TrimSpace(payload.CycleID),
		Content:    content,
	}
	if in.EmployeeID == "" {
		in.EmployeeID = user.UserID
	}
	if payload.Progress != nil {
		in.Progress = *payload.Progress
	}
	if !h.allowedFor(w, r, user, in.EmployeeID) {
		return
	}

	g, err := h.Service.Create(r.Context(), in, actorOf(user))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, g, requestID)
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	v := shared.NewValidator()
	employeeID := shared.QueryID(v, r, "employeeId")
	cycleID := shared.QueryID(v, r, "cycleId")
	v.Required("cycleId", r.URL.Query().Get("cycleId"), "cycleId is required")
	if v.Reject(w, requestID) {
		return
	}
	if employeeID == "" {
		employeeID = user.UserID
	}
	if !h.allowedFor(w, r, user, employeeID) {
		return
	}

	out, err := h.Service.Readiness(r.Context(), employeeID, cycleID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	api.Success(w, g, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload contentPayload
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	content := payload.content(v)
	if v.Reject(w, requestID) {
		return
	}

	updated, err := h.Service.UpdateContent(r.Context(), g.ID, content)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		Progress      *int    `json:"progress"`
		Status        string  `json:"status"`
		CompletedDate *string `json:"completedDate"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Range("progress", payload.Progress, 0, 100)
	v.Enum("status", payload.Status, goals.Statuses, "invalid goal status")
	completed := shared.OptionalDate(v, "completedDate", payload.CompletedDate)
	if v.Reject(w, requestID) {
		return
	}

	in := goals.ProgressInput{
		Progress:      g.Progress,
		Status:        strings.ToLower(strings.TrimSpace(payload.Status)),
		CompletedDate: completed,
	}
	if payload.Progress != nil {
		in.Progress = *payload.Progress
	}
	updated, err := h.Service.UpdateProgress(r.Context(), g.ID, in)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	g, user, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if err := h.Service.Delete(r.Context(), g.ID, actorOf(user)); err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"status": "withdrawn"}, requestID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	g, user, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	updated, err := h.Service.Submit(r.Context(), g.ID, actorOf(user))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	g, user, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	updated, err := h.Service.Approve(r.Context(), g.ID, actorOf(user))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	g, user, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		Reason string `json:"reason"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	updated, err := h.Service.Reject(r.Context(), g.ID, payload.Reason, actorOf(user))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadHistory(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.AuditTrail(r.Context(), g.ID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if items == nil {
		items = []goals.AuditEntry{}
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleVersions(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadHistory(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.Versions(r.Context(), g.ID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if items == nil {
		items = []goals.Version{}
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleParents(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	chain, err := h.Service.ParentChain(r.Context(), g.ID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if chain == nil {
		chain = []string{}
	}
	api.Success(w, map[string]any{"goalId": g.ID, "parents": chain}, requestID)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	v := shared.NewValidator()
	employeeID := shared.QueryID(v, r, "employeeId")
	if v.Reject(w, requestID) {
		return
	}
	if employeeID == "" {
		employeeID = user.UserID
	}
	if !h.allowedFor(w, r, user, employeeID) {
		return
	}

	out, err := h.Service.Stats(r.Context(), employeeID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handleKeyResults(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.KeyResults(r.Context(), g.ID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if items == nil {
		items = []goals.KeyResult{}
	}
	api.Success(w, map[string]any{"goalId": g.ID, "progress": g.Progress, "keyResults": items}, requestID)
}

func (h *Handler) handleAddKeyResult(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		Title        string   `json:"title"`
		Description  string   `json:"description"`
		TargetValue  *float64 `json:"targetValue"`
		CurrentValue float64  `json:"currentValue"`
		Unit         string   `json:"unit"`
		DueDate      *string  `json:"dueDate"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	if payload.TargetValue == nil || *payload.TargetValue <= 0 {
		v.Add("targetValue", "must be a positive number")
	}
	if payload.CurrentValue < 0 {
		v.Add("currentValue", "must not be negative")
	}
	v.Enum("unit", payload.Unit, goals.Units, "invalid unit")
	due := shared.OptionalDate(v, "dueDate", payload.DueDate)
	if v.Reject(w, requestID) {
		return
	}

	kr, updated, err := h.Service.AddKeyResult(r.Context(), g.ID, goals.KeyResultInput{
		Title:        payload.Title,
		Description:  payload.Description,
		TargetValue:  *payload.TargetValue,
		CurrentValue: payload.CurrentValue,
		Unit:         strings.ToLower(strings.TrimSpace(payload.Unit)),
		DueDate:      due,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, map[string]any{"keyResult": kr, "goal": updated}, requestID)
}

func (h *Handler) handleUpdateKeyResult(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	krID, ok := shared.PathID(w, r, "keyResultID", requestID)
	if !ok {
		return
	}

	var payload struct {
		CurrentValue *float64 `json:"currentValue"`
		Status       string   `json:"status"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	if payload.CurrentValue != nil && *payload.CurrentValue < 0 {
		v.Add("currentValue", "must not be negative")
	}
	v.Enum("status", payload.Status, goals.KeyResultStatuses, "invalid key result status")
	if v.Reject(w, requestID) {
		return
	}

	kr, updated, err := h.Service.UpdateKeyResult(r.Context(), g.ID, krID, goals.KeyResultUpdate{
		CurrentValue: payload.CurrentValue,
		Status:       strings.ToLower(strings.TrimSpace(payload.Status)),
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, map[string]any{"keyResult": kr, "goal": updated}, requestID)
}

func (h *Handler) handleComments(w http.ResponseWriter, r *http.Request) {
	g, _, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.Comments(r.Context(), g.ID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if items == nil {
		items = []goals.Comment{}
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	g, user, ok := h.loadGoal(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		Content     string `json:"content"`
		CommentType string `json:"commentType"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("content", payload.Content, "content is required")
	v.Enum("commentType", payload.CommentType, goals.CommentTypes, "invalid comment type")
	if v.Reject(w, requestID) {
		return
	}

	c, err := h.Service.AddComment(r.Context(), g.ID, payload.Content, strings.ToLower(strings.TrimSpace(payload.CommentType)), actorOf(user))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, c, requestID)
}

// loadGoal resolves the live goal in the path and checks the caller may
// work on it: its creator, its employee, someone above the employee, or HR.
// Approval decisions add their own rule in the goals service.
func (h *Handler) loadGoal(w http.ResponseWriter, r *http.Request) (goals.Goal, auth.UserContext, bool) {
	return h.load(w, r, h.Service.Get)
}

// loadHistory is loadGoal for audit and version reads, which stay open on
// withdrawn goals.
func (h *Handler) loadHistory(w http.ResponseWriter, r *http.Request) (goals.Goal, auth.UserContext, bool) {
	return h.load(w, r, h.Service.Lookup)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, get func(context.Context, string) (goals.Goal, error)) (goals.Goal, auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return goals.Goal{}, user, false
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "goalID", requestID)
	if !ok {
		return goals.Goal{}, user, false
	}
	g, err := get(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID)
		return goals.Goal{}, user, false
	}
	if g.CreatedBy == user.UserID {
		return g, user, true
	}
	if !h.allowedFor(w, r, user, g.EmployeeID) {
		return goals.Goal{}, user, false
	}
	return g, user, true
}

func (h *Handler) allowedFor(w http.ResponseWriter, r *http.Request, user auth.UserContext, employeeID string) bool {
	requestID := middleware.GetRequestID(r.Context())
	allowed, err := shared.CanActFor(r.Context(), h.Directory, user, employeeID)
	if err != nil {
		api.FailError(w, err, requestID)
		return false
	}
	if !allowed {
		api.FailError(w, apperror.Forbidden("not allowed to access this employee's goals").With("employeeId", employeeID), requestID)
		return false
	}
	return true
}
