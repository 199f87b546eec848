package appraisalshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/appraisals"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycles"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/eligibility"
	"appraisal/internal/transport/http/middleware"
)

type memoryStore struct {
	rows map[string]appraisals.Appraisal
}

func (m *memoryStore) InsertAppraisal(_ context.Context, a appraisals.Appraisal) (string, bool, error) {
	for _, existing := range m.rows {
		if existing.EmployeeID == a.EmployeeID && existing.CycleID == a.CycleID {
			return "", false, nil
		}
	}
	a.ID = uuid.NewString()
	m.rows[a.ID] = a
	return a.ID, true, nil
}

func (m *memoryStore) GetAppraisal(_ context.Context, id string) (appraisals.Appraisal, error) {
	a, ok := m.rows[id]
	if !ok {
		return appraisals.Appraisal{}, appraisals.ErrAppraisalNotFound
	}
	return a, nil
}

func (m *memoryStore) FindByEmployeeCycle(_ context.Context, employeeID, cycleID string) (appraisals.Appraisal, error) {
	for _, a := range m.rows {
		if a.EmployeeID == employeeID && a.CycleID == cycleID {
			return a, nil
		}
	}
	return appraisals.Appraisal{}, appraisals.ErrAppraisalNotFound
}

func (m *memoryStore) ExistingEmployeeIDs(context.Context, string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (m *memoryStore) ListAppraisals(_ context.Context, f appraisals.ListFilter) ([]appraisals.Appraisal, error) {
	var out []appraisals.Appraisal
	for _, a := range m.rows {
		if (f.EmployeeID != "" && a.EmployeeID != f.EmployeeID) || (f.ManagerID != "" && a.ManagerID != f.ManagerID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryStore) UpdateAppraisal(_ context.Context, a appraisals.Appraisal, expected string) error {
	cur, ok := m.rows[a.ID]
	if !ok || cur.Status != expected {
		return appraisals.ErrStaleAppraisal
	}
	m.rows[a.ID] = a
	return nil
}

func (m *memoryStore) DeleteAppraisal(_ context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return appraisals.ErrAppraisalNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryStore) CountByStatus(_ context.Context, cycleID string) (map[string]int, error) {
	out := map[string]int{}
	for _, a := range m.rows {
		if a.CycleID == cycleID {
			out[a.Status]++
		}
	}
	return out, nil
}

type cycleTable map[string]cycles.Cycle

func (c cycleTable) Get(_ context.Context, id string) (cycles.Cycle, error) {
	cy, ok := c[id]
	if !ok {
		return cycles.Cycle{}, apperror.NotFound("appraisal cycle not found")
	}
	return cy, nil
}

func (c cycleTable) Active(context.Context) (cycles.Cycle, error) {
	for _, cy := range c {
		if cy.Status == cycles.StatusActive {
			return cy, nil
		}
	}
	return cycles.Cycle{}, apperror.NotFound("no active appraisal cycle")
}

type mapDirectory map[string]directory.Employee

func (m mapDirectory) Lookup(_ context.Context, id string) (directory.Employee, error) {
	emp, ok := m[id]
	if !ok {
		return directory.Employee{}, directory.ErrEmployeeNotFound
	}
	return emp, nil
}

func (m mapDirectory) List(context.Context, directory.Filter) ([]directory.Employee, error) {
	return nil, nil
}

type goalSource struct {
	goals []appraisals.GoalSnapshot
	err   error
}

func (g *goalSource) GoalsFor(context.Context, string, string) ([]appraisals.GoalSnapshot, error) {
	return g.goals, g.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

var (
	employee  = auth.UserContext{UserID: uuid.NewString(), RoleName: auth.RoleEmployee}
	manager   = auth.UserContext{UserID: uuid.NewString(), RoleName: auth.RoleManager}
	outsider  = auth.UserContext{UserID: uuid.NewString(), RoleName: auth.RoleManager}
	hrPartner = auth.UserContext{UserID: uuid.NewString(), RoleName: auth.RoleHR}
)

type fixture struct {
	router  http.Handler
	store   *memoryStore
	cycle   cycles.Cycle
	goals   *goalSource
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture(today time.Time) fixture {
	selfDeadline := day(2026, 1, 15)
	managerDeadline := day(2026, 1, 31)
	cycle := cycles.Cycle{
		ID:                     uuid.NewString(),
		Name:                   "FY25",
		Status:                 cycles.StatusActive,
		StartDate:              day(2025, 1, 1),
		EndDate:                day(2025, 12, 31),
		SelfAssessmentDeadline: &selfDeadline,
		ManagerReviewDeadline:  &managerDeadline,
		NewJoinerPolicy:        eligibility.PolicyAutoInclude,
	}
	store := &memoryStore{rows: map[string]appraisals.Appraisal{}}
	joined := day(2020, 3, 1)
	dir := mapDirectory{
		employee.UserID: {ID: employee.UserID, Name: "Ada Employee", ManagerID: manager.UserID, StartDate: &joined, Active: true},
		manager.UserID:  {ID: manager.UserID, Name: "Grace Manager", Active: true},
		outsider.UserID: {ID: outsider.UserID, Active: true},
	}
	goals := &goalSource{}
	svc := appraisals.NewService(store, cycleTable{cycle.ID: cycle}, dir, goals)
	svc.Now = func() time.Time { return today }

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	NewHandler(svc, auth.StaticPermissions{}).RegisterRoutes(r)
	return fixture{router: r, store: store, cycle: cycle, goals: goals}
}

func (f fixture) seed(status string) appraisals.Appraisal {
	a := appraisals.Appraisal{
		ID:                uuid.NewString(),
		CycleID:           f.cycle.ID,
		EmployeeID:        employee.UserID,
		ManagerID:         manager.UserID,
		EligibilityStatus: eligibility.StatusEligible,
		Status:            status,
		GoalRatings:       map[string]appraisals.GoalRating{},
	}
	f.store.rows[a.ID] = a
	return a
}

func (f fixture) do(t *testing.T, user auth.UserContext, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestManagerSubmitRejectsFractionalRating(t *testing.T) {
	f := newFixture(day(2026, 1, 20))
	a := f.seed(appraisals.StatusManagerReview)

	rec := f.do(t, manager, http.MethodPost, "/appraisals/"+a.ID+"/manager/submit", `{"overallRating": 4.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", decode(t, rec).Error.Code)
	assert.Equal(t, appraisals.StatusManagerReview, f.store.rows[a.ID].Status)

	rec = f.do(t, manager, http.MethodPost, "/appraisals/"+a.ID+"/manager/submit", `{"overallRating": 7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, manager, http.MethodPost, "/appraisals/"+a.ID+"/manager/submit", `{"overallRating": 4.0, "meetingNotes": "solid year"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out appraisals.Appraisal
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &out))
	assert.Equal(t, appraisals.StatusCompleted, out.Status)
	require.NotNil(t, out.OverallRating)
	assert.Equal(t, 4, *out.OverallRating)
	assert.True(t, out.ManagerSubmitted)
}

func TestManagerSubmitByEmployeeIsForbidden(t *testing.T) {
	f := newFixture(day(2026, 1, 20))
	a := f.seed(appraisals.StatusManagerReview)

	rec := f.do(t, employee, http.MethodPost, "/appraisals/"+a.ID+"/manager/submit", `{"overallRating": 4}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, rec).Error.Code)
}

func TestSelfSubmitAfterDeadline(t *testing.T) {
	f := newFixture(day(2026, 1, 16))
	a := f.seed(appraisals.StatusSelfAssessment)

	rec := f.do(t, employee, http.MethodPost, "/appraisals/"+a.ID+"/self/submit", `{"goalRatings": {"g1": {"rating": 4}}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "DEADLINE_PASSED", env.Error.Code)
	assert.Equal(t, "2026-01-15", env.Error.Details["deadline"])
}

func TestSelfSaveThenSubmitOnDeadlineDay(t *testing.T) {
	f := newFixture(day(2026, 1, 15))
	a := f.seed(appraisals.StatusGoalsApproved)

	rec := f.do(t, employee, http.MethodPost, "/appraisals/"+a.ID+"/self/save", `{"answers": {"highlights": "shipped v2"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, appraisals.StatusSelfAssessment, f.store.rows[a.ID].Status)

	rec = f.do(t, employee, http.MethodPost, "/appraisals/"+a.ID+"/self/submit", `{"goalRatings": {"g1": {"rating": 4, "progress": 80}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, appraisals.StatusManagerReview, f.store.rows[a.ID].Status)
	assert.True(t, f.store.rows[a.ID].SelfSubmitted)
}

func TestResyncDistinguishesEmptyGoalsFromMissing(t *testing.T) {
	f := newFixture(day(2025, 6, 1))
	a := f.seed(appraisals.StatusGoalsPending)

	f.goals.err = errors.New("goal store offline")

	rec := f.do(t, employee, http.MethodPost, "/appraisals/"+a.ID+"/resync", `{"goals": []}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, hrPartner, http.MethodPost, "/appraisals/"+a.ID+"/resync", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", decode(t, rec).Error.Code)

	rec = f.do(t, hrPartner, http.MethodPost, "/appraisals/"+a.ID+"/resync", `{"goals": []}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, appraisals.StatusNotStarted, f.store.rows[a.ID].Status)

	rec = f.do(t, hrPartner, http.MethodPost, "/appraisals/"+a.ID+"/resync", `{"goals": [{"id": "g1", "approvalStatus": "approved"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, appraisals.StatusGoalsApproved, f.store.rows[a.ID].Status)
}

func TestViewingRules(t *testing.T) {
	f := newFixture(day(2025, 6, 1))
	a := f.seed(appraisals.StatusNotStarted)

	assert.Equal(t, http.StatusOK, f.do(t, employee, http.MethodGet, "/appraisals/"+a.ID, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, manager, http.MethodGet, "/appraisals/"+a.ID, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, hrPartner, http.MethodGet, "/appraisals/"+a.ID, "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, outsider, http.MethodGet, "/appraisals/"+a.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, hrPartner, http.MethodGet, "/appraisals/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, hrPartner, http.MethodGet, "/appraisals/abc", "").Code)
}

func TestListScopes(t *testing.T) {
	f := newFixture(day(2025, 6, 1))
	f.seed(appraisals.StatusNotStarted)

	rec := f.do(t, employee, http.MethodGet, "/appraisals?scope=all", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, manager, http.MethodGet, "/appraisals?scope=team", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []appraisals.Appraisal `json:"items"`
		Total int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Equal(t, 1, page.Total)

	rec = f.do(t, manager, http.MethodGet, "/appraisals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Equal(t, 0, page.Total)

	rec = f.do(t, hrPartner, http.MethodGet, "/appraisals?scope=everyone", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMineCreatesAppraisalLazily(t *testing.T) {
	f := newFixture(day(2025, 6, 1))

	rec := f.do(t, employee, http.MethodGet, "/appraisals/me", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first appraisals.Appraisal
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &first))
	assert.Equal(t, appraisals.StatusNotStarted, first.Status)
	assert.Equal(t, manager.UserID, first.ManagerID)

	rec = f.do(t, employee, http.MethodGet, "/appraisals/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var second appraisals.Appraisal
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &second))
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.store.rows, 1)

	rec = f.do(t, outsider, http.MethodGet, "/appraisals/me", "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "no start date on record defers the employee")
}

func TestHRReviewRequiresDecision(t *testing.T) {
	f := newFixture(day(2025, 6, 1))
	a := f.seed(appraisals.StatusNotStarted)
	a.EligibilityStatus = eligibility.StatusPendingHRReview
	f.store.rows[a.ID] = a

	rec := f.do(t, hrPartner, http.MethodPost, "/appraisals/"+a.ID+"/hr-review", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, hrPartner, http.MethodPost, "/appraisals/"+a.ID+"/hr-review", `{"approve": false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, f.store.rows)
}

func TestSummaryPDF(t *testing.T) {
	f := newFixture(day(2026, 2, 1))
	a := f.seed(appraisals.StatusCompleted)

	rec := f.do(t, employee, http.MethodGet, "/appraisals/"+a.ID+"/summary.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = f.do(t, outsider, http.MethodGet, "/appraisals/"+a.ID+"/summary.pdf", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
