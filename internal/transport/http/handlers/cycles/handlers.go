package cycleshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/appraisals"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycles"
	"appraisal/internal/domain/eligibility"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service     *cycles.Service
	Perms       middleware.PermissionStore
	Idempotency middleware.IdempotencyBackend
}

func NewHandler(service *cycles.Service, perms middleware.PermissionStore, idempotency middleware.IdempotencyBackend) *Handler {
	return &Handler{Service: service, Perms: perms, Idempotency: idempotency}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cycles", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCyclesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCyclesRead, h.Perms)).Get("/active", h.handleActive)
		r.With(middleware.RequirePermission(auth.PermCyclesManage, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermCyclesRead, h.Perms)).Get("/{cycleID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermCyclesManage, h.Perms)).Put("/{cycleID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermCyclesManage, h.Perms)).Delete("/{cycleID}", h.handleDelete)
		r.With(
			middleware.RequirePermission(auth.PermCyclesManage, h.Perms),
			middleware.Idempotent(h.Idempotency, "cycles.activate"),
		).Post("/{cycleID}/activate", h.handleActivate)
		r.With(middleware.RequirePermission(auth.PermCyclesManage, h.Perms)).Post("/{cycleID}/stop", h.handleStop)
		r.With(middleware.RequirePermission(auth.PermCyclesManage, h.Perms)).Post("/{cycleID}/archive", h.handleArchive)
		r.With(middleware.RequirePermission(auth.PermCyclesRead, h.Perms)).Get("/{cycleID}/questions", h.handleQuestions)
		r.With(middleware.RequirePermission(auth.PermCyclesManage, h.Perms)).Post("/{cycleID}/questions", h.handleAddQuestions)
		r.With(middleware.RequirePermission(auth.PermAppraisalsAdmin, h.Perms)).Get("/{cycleID}/summary", h.handleSummary)
	})
}

type cyclePayload struct {
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	Type                   string  `json:"type"`
	StartDate              string  `json:"startDate"`
	EndDate                string  `json:"endDate"`
	SelfAssessmentDeadline *string `json:"selfAssessmentDeadline"`
	ManagerReviewDeadline  *string `json:"managerReviewDeadline"`
	MinimumServiceMonths   int     `json:"minimumServiceMonths"`
	EligibilityCutoffDate  *string `json:"eligibilityCutoffDate"`
	IncludeProbation       bool    `json:"includeProbation"`
	ProrationAllowed       bool    `json:"prorationAllowed"`
	NewJoinerPolicy        string  `json:"newJoinerPolicy"`
}

func (p cyclePayload) input(v *shared.Validator) cycles.Input {
	v.Required("name", p.Name, "name is required")
	v.Required("type", p.Type, "type is required")
	v.Enum("type", p.Type, cycles.Types, "invalid cycle type")
	v.Enum("newJoinerPolicy", p.NewJoinerPolicy, eligibility.NewJoinerPolicies, "invalid new joiner policy")
	start, _ := v.Date("startDate", p.StartDate)
	end, _ := v.Date("endDate", p.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if p.MinimumServiceMonths < 0 {
		v.Add("minimumServiceMonths", "must not be negative")
	}
	return cycles.Input{
		Name:                   strings.TrimSpace(p.Name),
		Description:            strings.TrimSpace(p.Description),
		Type:                   strings.ToLower(strings.TrimSpace(p.Type)),
		StartDate:              start,
		EndDate:                end,
		SelfAssessmentDeadline: shared.OptionalDate(v, "selfAssessmentDeadline", p.SelfAssessmentDeadline),
		ManagerReviewDeadline:  shared.OptionalDate(v, "managerReviewDeadline", p.ManagerReviewDeadline),
		MinimumServiceMonths:   p.MinimumServiceMonths,
		EligibilityCutoffDate:  shared.OptionalDate(v, "eligibilityCutoffDate", p.EligibilityCutoffDate),
		IncludeProbation:       p.IncludeProbation,
		ProrationAllowed:       p.ProrationAllowed,
		NewJoinerPolicy:        strings.ToLower(strings.TrimSpace(p.NewJoinerPolicy)),
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []cycles.Cycle{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Active(r.Context())
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload cyclePayload
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	in := payload.input(v)
	if v.Reject(w, requestID) {
		return
	}

	c, err := h.Service.Create(r.Context(), in, user.UserID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, c, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}
	c, err := h.Service.Get(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, c, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}

	var payload cyclePayload
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}
	v := shared.NewValidator()
	in := payload.input(v)
	if v.Reject(w, requestID) {
		return
	}

	c, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, c, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id, appraisals.StatusNotStarted); err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, requestID)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}

	var criteria cycles.ActivateCriteria
	if !shared.DecodeJSON(w, r, &criteria, true, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Enum("rewardRule", criteria.RewardRule, eligibility.RewardRules, "unknown reward rule")
	if v.Reject(w, requestID) {
		return
	}

	summary, err := h.Service.Activate(r.Context(), id, criteria, user.UserID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, summary, requestID)
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Service.Stop)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Service.Archive)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (cycles.Cycle, error)) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}
	c, err := fn(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, c, requestID)
}

type questionPayload struct {
	QuestionText string `json:"questionText"`
	QuestionType string `json:"questionType"`
	Category     string `json:"category"`
	SortOrder    *int   `json:"sortOrder"`
	IsRequired   *bool  `json:"isRequired"`
	IsForSelf    *bool  `json:"isForSelf"`
	IsForManager *bool  `json:"isForManager"`
}

// questionBatch accepts a single question object or an array of them.
type questionBatch []questionPayload

func (b *questionBatch) UnmarshalJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		var items []questionPayload
		if err := dec.Decode(&items); err != nil {
			return err
		}
		*b = items
		return nil
	}
	var one questionPayload
	if err := dec.Decode(&one); err != nil {
		return err
	}
	*b = questionBatch{one}
	return nil
}

func (b questionBatch) inputs(v *shared.Validator) []cycles.QuestionInput {
	if len(b) == 0 {
		v.Add("questions", "at least one question is required")
	}
	out := make([]cycles.QuestionInput, 0, len(b))
	for i, p := range b {
		prefix := "questions[" + strconv.Itoa(i) + "]."
		v.Required(prefix+"questionText", p.QuestionText, "question text is required")
		v.Enum(prefix+"questionType", p.QuestionType, cycles.QuestionTypes, "invalid question type")
		if p.SortOrder != nil && *p.SortOrder < 0 {
			v.Add(prefix+"sortOrder", "must not be negative")
		}
		out = append(out, cycles.QuestionInput{
			Text:       p.QuestionText,
			Type:       strings.ToLower(strings.TrimSpace(p.QuestionType)),
			Category:   p.Category,
			Order:      p.SortOrder,
			Required:   p.IsRequired,
			ForSelf:    p.IsForSelf,
			ForManager: p.IsForManager,
		})
	}
	return out
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}
	items, err := h.Service.Questions(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleAddQuestions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}

	var batch questionBatch
	if !shared.DecodeJSON(w, r, &batch, false, requestID) {
		return
	}
	v := shared.NewValidator()
	in := batch.inputs(v)
	if v.Reject(w, requestID) {
		return
	}

	items, err := h.Service.AddQuestions(r.Context(), id, in)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, items, requestID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "cycleID", requestID)
	if !ok {
		return
	}
	summary, err := h.Service.Summary(r.Context(), id)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, summary, requestID)
}
