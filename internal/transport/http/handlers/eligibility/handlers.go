package eligibilityhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycles"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/eligibility"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type CycleLookup interface {
	Get(ctx context.Context, id string) (cycles.Cycle, error)
	Active(ctx context.Context) (cycles.Cycle, error)
}

type Handler struct {
	Cycles    CycleLookup
	Directory directory.Directory
	Perms     middleware.PermissionStore
}

func NewHandler(cycleLookup CycleLookup, dir directory.Directory, perms middleware.PermissionStore) *Handler {
	return &Handler{Cycles: cycleLookup, Directory: dir, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/eligibility", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEligibilityEvaluate, h.Perms)).Post("/evaluate", h.handleEvaluate)
	})
}

type cyclePayload struct {
	StartDate             string  `json:"startDate"`
	EndDate               string  `json:"endDate"`
	MinimumServiceMonths  int     `json:"minimumServiceMonths"`
	EligibilityCutoffDate *string `json:"eligibilityCutoffDate"`
	IncludeProbation      bool    `json:"includeProbation"`
	ProrationAllowed      bool    `json:"prorationAllowed"`
	NewJoinerPolicy       string  `json:"newJoinerPolicy"`
}

type evaluation struct {
	EmployeeID string                   `json:"employeeId,omitempty"`
	CycleID    string                   `json:"cycleId,omitempty"`
	Result     eligibility.Result       `json:"result"`
	Policy     eligibility.PolicyResult `json:"policy"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		EmployeeID     string        `json:"employeeId"`
		CycleID        string        `json:"cycleId"`
		StartDate      *string       `json:"startDate"`
		EmploymentType string        `json:"employmentType"`
		Cycle          *cyclePayload `json:"cycle"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, requestID) {
		return
	}

	v := shared.NewValidator()
	facts := eligibility.TenureFacts{
		StartDate:      shared.OptionalDate(v, "startDate", payload.StartDate),
		EmploymentType: payload.EmploymentType,
	}
	var cfg *eligibility.CycleConfig
	if payload.Cycle != nil {
		cfg = cycleConfig(v, *payload.Cycle)
	}
	if payload.EmployeeID == "" && payload.StartDate == nil {
		v.Add("startDate", "required when employeeId is not given")
	}
	if v.Reject(w, requestID) {
		return
	}

	if payload.EmployeeID != "" {
		allowed, err := shared.CanActFor(r.Context(), h.Directory, user, payload.EmployeeID)
		if err != nil {
			api.FailError(w, err, requestID)
			return
		}
		if !allowed {
			api.FailError(w, apperror.Forbidden("not allowed to evaluate this employee"), requestID)
			return
		}
		emp, err := h.Directory.Lookup(r.Context(), payload.EmployeeID)
		if errors.Is(err, directory.ErrEmployeeNotFound) {
			api.FailError(w, apperror.NotFound("employee not found").With("employeeId", payload.EmployeeID), requestID)
			return
		}
		if err != nil {
			api.FailError(w, apperror.Upstream("employee directory unavailable", err), requestID)
			return
		}
		facts = emp.TenureFacts()
	}

	out := evaluation{EmployeeID: payload.EmployeeID}
	if cfg == nil {
		c, err := h.cycle(r.Context(), payload.CycleID)
		if err != nil {
			api.FailError(w, err, requestID)
			return
		}
		config := c.EligibilityConfig()
		cfg = &config
		out.CycleID = c.ID
	}

	out.Result = eligibility.Evaluate(facts, *cfg)
	out.Policy = eligibility.PolicyStatus(facts.StartDate, cfg.EndDate)
	api.Success(w, out, requestID)
}

func (h *Handler) cycle(ctx context.Context, id string) (cycles.Cycle, error) {
	if id != "" {
		return h.Cycles.Get(ctx, id)
	}
	return h.Cycles.Active(ctx)
}

func cycleConfig(v *shared.Validator, p cyclePayload) *eligibility.CycleConfig {
	start, _ := v.Date("cycle.startDate", p.StartDate)
	end, _ := v.Date("cycle.endDate", p.EndDate)
	v.DateOrder("cycle.startDate", start, "cycle.endDate", end)
	if p.MinimumServiceMonths < 0 {
		v.Add("cycle.minimumServiceMonths", "must not be negative")
	}
	policy := p.NewJoinerPolicy
	if policy == "" {
		policy = eligibility.PolicyAutoInclude
	}
	v.Enum("cycle.newJoinerPolicy", policy, eligibility.NewJoinerPolicies, "invalid new joiner policy")
	return &eligibility.CycleConfig{
		StartDate:             start,
		EndDate:               end,
		MinimumServiceMonths:  p.MinimumServiceMonths,
		EligibilityCutoffDate: shared.OptionalDate(v, "cycle.eligibilityCutoffDate", p.EligibilityCutoffDate),
		IncludeProbation:      p.IncludeProbation,
		ProrationAllowed:      p.ProrationAllowed,
		NewJoinerPolicy:       policy,
	}
}
