package cycles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/eligibility"
	"appraisal/internal/domain/notifications"
)

type memoryStore struct {
	cycles map[string]Cycle
	nextID int
	// appraisal statuses per cycle, consulted by DeleteCycle
	appraisalStatuses map[string][]string
	questions         map[string][]Question
	activateErr       error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{cycles: map[string]Cycle{}, appraisalStatuses: map[string][]string{}, questions: map[string][]Question{}}
}

func (m *memoryStore) CreateCycle(_ context.Context, c Cycle) (Cycle, error) {
	m.nextID++
	c.ID = "cycle-" + string(rune('0'+m.nextID))
	m.cycles[c.ID] = c
	return c, nil
}

func (m *memoryStore) GetCycle(_ context.Context, id string) (Cycle, error) {
	c, ok := m.cycles[id]
	if !ok {
		return Cycle{}, ErrCycleNotFound
	}
	return c, nil
}

func (m *memoryStore) UpdateCycle(_ context.Context, c Cycle) error {
	cur, ok := m.cycles[c.ID]
	if !ok || cur.Status != c.Status {
		return ErrCycleNotFound
	}
	m.cycles[c.ID] = c
	return nil
}

func (m *memoryStore) ListCycles(context.Context) ([]Cycle, error) {
	var out []Cycle
	for _, c := range m.cycles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) ActiveCycle(context.Context) (Cycle, error) {
	for _, c := range m.cycles {
		if c.Status == StatusActive {
			return c, nil
		}
	}
	return Cycle{}, ErrCycleNotFound
}

func (m *memoryStore) ActivateCycle(_ context.Context, id string) (*Cycle, error) {
	if m.activateErr != nil {
		return nil, m.activateErr
	}
	for _, c := range m.cycles {
		if c.Status == StatusActive && c.ID != id {
			return &c, nil
		}
	}
	c := m.cycles[id]
	c.Status = StatusActive
	m.cycles[id] = c
	return nil, nil
}

func (m *memoryStore) SetStatus(_ context.Context, id, from, to string) (bool, error) {
	c, ok := m.cycles[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	m.cycles[id] = c
	return true, nil
}

func (m *memoryStore) ExpireCycles(_ context.Context, today time.Time) (int64, error) {
	var n int64
	for id, c := range m.cycles {
		if c.Status == StatusActive && c.EndDate.Before(today) {
			c.Status = StatusCompleted
			m.cycles[id] = c
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) DeleteCycle(_ context.Context, id, initial string) (int, error) {
	if _, ok := m.cycles[id]; !ok {
		return 0, ErrCycleNotFound
	}
	blocking := 0
	for _, st := range m.appraisalStatuses[id] {
		if st != initial {
			blocking++
		}
	}
	if blocking == 0 {
		delete(m.cycles, id)
		delete(m.appraisalStatuses, id)
	}
	return blocking, nil
}

func (m *memoryStore) AddQuestions(_ context.Context, cycleID string, qs []Question) ([]Question, error) {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		q.ID = fmt.Sprintf("q-%d", len(m.questions[cycleID])+1)
		q.CycleID = cycleID
		m.questions[cycleID] = append(m.questions[cycleID], q)
		out = append(out, q)
	}
	return out, nil
}

func (m *memoryStore) ListQuestions(_ context.Context, cycleID string) ([]Question, error) {
	out := append([]Question{}, m.questions[cycleID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

type staticCounts struct {
	counts map[string]int
	err    error
}

func (c staticCounts) StatusCounts(context.Context, string) (map[string]int, error) {
	return c.counts, c.err
}

type staticDirectory struct {
	employees []directory.Employee
	err       error
}

func (d staticDirectory) Lookup(_ context.Context, id string) (directory.Employee, error) {
	for _, e := range d.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return directory.Employee{}, directory.ErrEmployeeNotFound
}

func (d staticDirectory) List(_ context.Context, f directory.Filter) ([]directory.Employee, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []directory.Employee
	for _, e := range d.employees {
		if f.DepartmentID != "" && f.DepartmentID != "all" && e.DepartmentID != f.DepartmentID {
			continue
		}
		if f.EmploymentType != "" && f.EmploymentType != "all" && e.EmploymentType != f.EmploymentType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type recordingProvisioner struct {
	byCycle  map[string]map[string]eligibility.Result
	failWith error
}

func newRecordingProvisioner() *recordingProvisioner {
	return &recordingProvisioner{byCycle: map[string]map[string]eligibility.Result{}}
}

func (p *recordingProvisioner) ExistingEmployeeIDs(_ context.Context, cycleID string) (map[string]bool, error) {
	out := map[string]bool{}
	for id := range p.byCycle[cycleID] {
		out[id] = true
	}
	return out, nil
}

func (p *recordingProvisioner) Provision(_ context.Context, c Cycle, emp directory.Employee, verdict eligibility.Result) (bool, error) {
	if p.failWith != nil {
		return false, p.failWith
	}
	if p.byCycle[c.ID] == nil {
		p.byCycle[c.ID] = map[string]eligibility.Result{}
	}
	if _, ok := p.byCycle[c.ID][emp.ID]; ok {
		return false, nil
	}
	p.byCycle[c.ID][emp.ID] = verdict
	return true, nil
}

type recordingNotifier struct {
	events []notifications.Event
}

func (n *recordingNotifier) Emit(_ context.Context, ev notifications.Event) {
	n.events = append(n.events, ev)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func annualInput(name string) Input {
	return Input{
		Name:                 name,
		Type:                 TypeAnnual,
		StartDate:            day(2025, time.April, 1),
		EndDate:              day(2026, time.March, 31),
		MinimumServiceMonths: 3,
		ProrationAllowed:     true,
	}
}

type fixture struct {
	svc      *Service
	store    *memoryStore
	prov     *recordingProvisioner
	notifier *recordingNotifier
}

func newFixture(employees ...directory.Employee) fixture {
	store := newMemoryStore()
	prov := newRecordingProvisioner()
	notifier := &recordingNotifier{}
	svc := NewService(store, staticDirectory{employees: employees}, prov, notifier)
	svc.Now = func() time.Time { return day(2025, time.June, 1) }
	return fixture{svc: svc, store: store, prov: prov, notifier: notifier}
}

func veteran(id, dept string) directory.Employee {
	return directory.Employee{ID: id, Name: id, StartDate: ptr(day(2020, time.January, 6)), DepartmentID: dept, EmploymentType: "full_time", Active: true}
}

func TestCreateStoresDraftWithDefaultPolicy(t *testing.T) {
	f := newFixture()
	c, err := f.svc.Create(context.Background(), annualInput("FY26"), "hr-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, c.Status)
	assert.Equal(t, eligibility.PolicyAutoInclude, c.NewJoinerPolicy)
	assert.Equal(t, "hr-1", c.CreatedBy)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	cases := map[string]func(*Input){
		"missing name":       func(in *Input) { in.Name = " " },
		"bad type":           func(in *Input) { in.Type = "quarterly" },
		"bad policy":         func(in *Input) { in.NewJoinerPolicy = "sometimes" },
		"end before start":   func(in *Input) { in.EndDate = day(2025, time.March, 1) },
		"negative months":    func(in *Input) { in.MinimumServiceMonths = -1 },
		"deadline too early": func(in *Input) { in.SelfAssessmentDeadline = ptr(day(2025, time.January, 1)) },
		"deadlines inverted": func(in *Input) {
			in.SelfAssessmentDeadline = ptr(day(2026, time.April, 10))
			in.ManagerReviewDeadline = ptr(day(2026, time.April, 1))
		},
	}
	for name, mutate := range cases {
		in := annualInput("FY26")
		mutate(&in)
		_, err := f.svc.Create(context.Background(), in, "hr-1")
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err), name)
	}
}

func TestActivateConflictsWithOtherActiveCycleThenSucceedsAfterStop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(veteran("e1", "eng"), veteran("e2", "eng"))

	y, err := f.svc.Create(ctx, annualInput("Y"), "hr-1")
	require.NoError(t, err)
	x, err := f.svc.Create(ctx, annualInput("X"), "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Activate(ctx, y.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)
	assert.Len(t, f.prov.byCycle[y.ID], 2)

	_, err = f.svc.Activate(ctx, x.ID, ActivateCriteria{}, "hr-1")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStateConflict, apperror.CodeOf(err))
	assert.Equal(t, y.ID, apperror.DetailsOf(err)["conflictingCycleId"])
	assert.Equal(t, "Y", apperror.DetailsOf(err)["conflictingCycleName"])

	_, err = f.svc.Stop(ctx, y.ID)
	require.NoError(t, err)

	// e1 already holds an appraisal for X, so only e2 is provisioned.
	f.prov.byCycle[x.ID] = map[string]eligibility.Result{"e1": {IsEligible: true, Status: eligibility.StatusEligible}}
	summary, err := f.svc.Activate(ctx, x.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Existing)
	assert.Len(t, f.prov.byCycle[x.ID], 2)

	active, err := f.svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, x.ID, active.ID)
}

func TestActivateIsIdempotentResync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(veteran("e1", "eng"), veteran("e2", "ops"))
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)

	first, err := f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.False(t, first.Resync)
	assert.Len(t, f.notifier.events, 2)
	assert.Equal(t, notifications.EventCycleStarted, f.notifier.events[0].Event)

	second, err := f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)
	assert.True(t, second.Resync)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Existing)
	assert.Len(t, f.notifier.events, 2, "resync must not notify again")
}

func TestActivateFiltersAndSkipsIneligible(t *testing.T) {
	ctx := context.Background()
	newcomer := directory.Employee{ID: "new", StartDate: ptr(day(2026, time.March, 1)), DepartmentID: "eng", EmploymentType: "full_time", Active: true}
	noStart := directory.Employee{ID: "nostart", DepartmentID: "eng", EmploymentType: "full_time", Active: true}
	f := newFixture(veteran("e1", "eng"), veteran("e2", "ops"), newcomer, noStart)
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)

	summary, err := f.svc.Activate(ctx, c.ID, ActivateCriteria{DepartmentID: "eng", EmploymentType: "all"}, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Considered)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Skipped[eligibility.StatusNotEligibleMinService])
	assert.Equal(t, 1, summary.Skipped[eligibility.StatusDeferred])
	assert.Contains(t, f.prov.byCycle[c.ID], "e1")
}

func TestActivateRewardRuleNarrowsProvisioning(t *testing.T) {
	ctx := context.Background()
	recent := directory.Employee{ID: "recent", StartDate: ptr(day(2025, time.December, 1)), EmploymentType: "full_time", Active: true}
	f := newFixture(veteran("e1", "eng"), recent)
	in := annualInput("FY26")
	in.MinimumServiceMonths = 0
	c, err := f.svc.Create(ctx, in, "hr-1")
	require.NoError(t, err)

	summary, err := f.svc.Activate(ctx, c.ID, ActivateCriteria{RewardRule: eligibility.RuleFullHikeOnly}, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Skipped["reward_rule"])

	_, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{RewardRule: "bogus"}, "hr-1")
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}

func TestActivateHRReviewPlaceholders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(veteran("e1", "eng"))
	in := annualInput("FY26")
	in.NewJoinerPolicy = eligibility.PolicyManualHRReview
	c, err := f.svc.Create(ctx, in, "hr-1")
	require.NoError(t, err)

	summary, err := f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped[eligibility.StatusPendingHRReview])
	assert.Empty(t, f.prov.byCycle[c.ID])

	f.svc.HRReviewPlaceholders = true
	summary, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Placeholders)
	assert.Equal(t, eligibility.StatusPendingHRReview, f.prov.byCycle[c.ID]["e1"].Status)
	assert.Empty(t, f.notifier.events)
}

func TestActivateDirectoryUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.svc.Directory = staticDirectory{err: errors.New("connection refused")}
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	assert.Equal(t, apperror.CodeUpstreamUnavailable, apperror.CodeOf(err))
}

func TestActivateCompletedCycleIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)
	c.Status = StatusCompleted
	f.store.cycles[c.ID] = c

	_, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	assert.Equal(t, apperror.CodeStateConflict, apperror.CodeOf(err))
}

func TestStopRequiresActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Stop(ctx, c.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStateConflict, apperror.CodeOf(err))
	assert.Equal(t, StatusDraft, apperror.DetailsOf(err)["currentStatus"])

	_, err = f.svc.Stop(ctx, "missing")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestListExpiresPastActiveCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	in := annualInput("FY25")
	in.StartDate = day(2024, time.April, 1)
	in.EndDate = day(2025, time.March, 31)
	c, err := f.svc.Create(ctx, in, "hr-1")
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusCompleted, list[0].Status)

	archived, err := f.svc.Archive(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, archived.Status)
}

func TestUpdateOnlyInDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, c.ID, annualInput("FY26 renamed"))
	require.NoError(t, err)
	assert.Equal(t, "FY26 renamed", updated.Name)

	_, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, c.ID, annualInput("again"))
	assert.Equal(t, apperror.CodeStateConflict, apperror.CodeOf(err))
}

func TestDeleteBlockedByProgressedAppraisals(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)
	f.store.appraisalStatuses[c.ID] = []string{"not_started", "manager_review"}

	err = f.svc.Delete(ctx, c.ID, "not_started")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStateConflict, apperror.CodeOf(err))
	assert.Equal(t, 1, apperror.DetailsOf(err)["blockingAppraisals"])

	f.store.appraisalStatuses[c.ID] = []string{"not_started"}
	require.NoError(t, f.svc.Delete(ctx, c.ID, "not_started"))
	_, err = f.svc.Get(ctx, c.ID)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestActivateLosingRaceToStatusChangeIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(veteran("e1", "eng"))
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)
	f.store.activateErr = ErrCycleNotFound

	_, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStateConflict, apperror.CodeOf(err))
	assert.Equal(t, StatusDraft, apperror.DetailsOf(err)["currentStatus"])
	assert.Equal(t, c.ID, apperror.DetailsOf(err)["cycleId"])
	assert.Empty(t, f.prov.byCycle[c.ID])

	f.store.activateErr = errors.New("connection reset")
	_, err = f.svc.Activate(ctx, c.ID, ActivateCriteria{}, "hr-1")
	require.Error(t, err)
	assert.Empty(t, apperror.CodeOf(err))
}

func TestAddQuestionsAppliesDefaultsAndOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)

	managerOnly, first := false, 5
	added, err := f.svc.AddQuestions(ctx, c.ID, []QuestionInput{
		{Text: " What went well? ", Order: &first},
		{Text: "Rate collaboration", Type: QuestionRating, Category: "teamwork", ForSelf: &managerOnly},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "What went well?", added[0].Text)
	assert.Equal(t, QuestionText, added[0].Type)
	assert.True(t, added[0].Required)
	assert.True(t, added[0].ForSelf)
	assert.True(t, added[0].ForManager)
	assert.Equal(t, 5, added[0].Order)
	assert.Equal(t, 6, added[1].Order)
	assert.False(t, added[1].ForSelf)

	more, err := f.svc.AddQuestions(ctx, c.ID, []QuestionInput{{Text: "Anything else?"}})
	require.NoError(t, err)
	assert.Equal(t, 7, more[0].Order)

	list, err := f.svc.Questions(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Anything else?", list[2].Text)
}

func TestAddQuestionsValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)
	no, negative := false, -1

	cases := map[string][]QuestionInput{
		"empty list":     nil,
		"blank text":     {{Text: "  "}},
		"bad type":       {{Text: "Why?", Type: "essay"}},
		"negative order": {{Text: "Why?", Order: &negative}},
		"nobody asked":   {{Text: "Why?", ForSelf: &no, ForManager: &no}},
	}
	for name, in := range cases {
		_, err := f.svc.AddQuestions(ctx, c.ID, in)
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err), name)
	}

	_, err = f.svc.AddQuestions(ctx, c.ID, []QuestionInput{{Text: "ok"}, {Text: ""}})
	assert.Equal(t, 1, apperror.DetailsOf(err)["index"])
	assert.Empty(t, f.store.questions[c.ID], "a rejected batch stores nothing")

	c.Status = StatusArchived
	f.store.cycles[c.ID] = c
	_, err = f.svc.AddQuestions(ctx, c.ID, []QuestionInput{{Text: "Late?"}})
	assert.Equal(t, apperror.CodeStateConflict, apperror.CodeOf(err))

	_, err = f.svc.Questions(ctx, "missing")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestSummaryTotalsAppraisalCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c, err := f.svc.Create(ctx, annualInput("FY26"), "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Summary(ctx, c.ID)
	assert.Equal(t, apperror.CodeUpstreamUnavailable, apperror.CodeOf(err))

	f.svc.Appraisals = staticCounts{counts: map[string]int{"not_started": 3, "manager_review": 1, "completed": 0}}
	summary, err := f.svc.Summary(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "FY26", summary.CycleName)
	assert.Equal(t, StatusDraft, summary.Status)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 0, summary.ByStatus["completed"])

	f.svc.Appraisals = staticCounts{err: errors.New("pool closed")}
	_, err = f.svc.Summary(ctx, c.ID)
	require.Error(t, err)

	_, err = f.svc.Summary(ctx, "missing")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}
