package cycles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/eligibility"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/metrics"
)

// Provisioner creates per-employee appraisals for a cycle.
type Provisioner interface {
	ExistingEmployeeIDs(ctx context.Context, cycleID string) (map[string]bool, error)
	Provision(ctx context.Context, c Cycle, emp directory.Employee, verdict eligibility.Result) (bool, error)
}

type Notifier interface {
	Emit(ctx context.Context, ev notifications.Event)
}

type Service struct {
	store       StoreAPI
	Directory   directory.Directory
	Provisioner Provisioner
	Notify      Notifier
	Appraisals  StatusCounter
	// HRReviewPlaceholders provisions a pending record for employees whose
	// eligibility awaits HR review instead of skipping them.
	HRReviewPlaceholders bool
	Now                  func() time.Time
}

func NewService(store StoreAPI, dir directory.Directory, provisioner Provisioner, notify Notifier) *Service {
	return &Service{store: store, Directory: dir, Provisioner: provisioner, Notify: notify, Now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) Create(ctx context.Context, in Input, actorID string) (Cycle, error) {
	if err := validateInput(in); err != nil {
		return Cycle{}, err
	}
	c := applyInput(Cycle{Status: StatusDraft, CreatedBy: actorID}, in)
	return s.store.CreateCycle(ctx, c)
}

func (s *Service) Get(ctx context.Context, id string) (Cycle, error) {
	c, err := s.store.GetCycle(ctx, id)
	if errors.Is(err, ErrCycleNotFound) {
		return Cycle{}, errNotFound.With("cycleId", id)
	}
	return c, err
}

// Active returns the single active cycle.
func (s *Service) Active(ctx context.Context) (Cycle, error) {
	c, err := s.store.ActiveCycle(ctx)
	if errors.Is(err, ErrCycleNotFound) {
		return Cycle{}, apperror.NotFound("no active appraisal cycle")
	}
	return c, err
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Cycle, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Cycle{}, err
	}
	if c.Status != StatusDraft {
		return Cycle{}, statusConflict("only draft cycles can be edited", c, StatusDraft)
	}
	if err := validateInput(in); err != nil {
		return Cycle{}, err
	}
	updated := applyInput(c, in)
	if err := s.store.UpdateCycle(ctx, updated); err != nil {
		if errors.Is(err, ErrCycleNotFound) {
			// status moved underneath us
			return Cycle{}, statusConflict("cycle changed while editing", c, StatusDraft)
		}
		return Cycle{}, err
	}
	return s.Get(ctx, id)
}

// List returns all cycles after completing any active cycle whose end date
// has passed.
func (s *Service) List(ctx context.Context) ([]Cycle, error) {
	expired, err := s.store.ExpireCycles(ctx, s.today())
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		slog.Info("expired appraisal cycles", "count", expired)
	}
	return s.store.ListCycles(ctx)
}

// Activate makes the cycle active and provisions appraisals for every
// matching employee that lacks one. Activating the already-active cycle
// only provisions what is missing.
func (s *Service) Activate(ctx context.Context, id string, criteria ActivateCriteria, actorID string) (ActivationSummary, error) {
	summary := ActivationSummary{CycleID: id, Skipped: map[string]int{}}
	if !eligibility.ValidRewardRule(criteria.RewardRule) {
		return summary, apperror.Validation("unknown reward rule").With("allowed", eligibility.RewardRules)
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return summary, err
	}
	switch c.Status {
	case StatusActive:
		summary.Resync = true
	case StatusDraft:
		conflict, err := s.store.ActivateCycle(ctx, id)
		if errors.Is(err, ErrCycleNotFound) {
			// left draft between the read and the update
			metrics.RecordCycleActivation("conflict")
			return summary, statusConflict("cycle changed while activating", c, StatusDraft, StatusActive)
		}
		if err != nil {
			metrics.RecordCycleActivation("error")
			return summary, err
		}
		if conflict != nil {
			metrics.RecordCycleActivation("conflict")
			return summary, conflictWithActive(c, *conflict)
		}
		c.Status = StatusActive
	default:
		return summary, statusConflict("cycle cannot be activated", c, StatusDraft, StatusActive)
	}
	metrics.RecordCycleActivation("activated")

	if err := s.provisionAll(ctx, c, criteria, actorID, &summary); err != nil {
		return summary, err
	}
	slog.Info("appraisal cycle activated",
		"cycleId", c.ID,
		"resync", summary.Resync,
		"created", summary.Created,
		"existing", summary.Existing,
		"placeholders", summary.Placeholders,
	)
	return summary, nil
}

func (s *Service) provisionAll(ctx context.Context, c Cycle, criteria ActivateCriteria, actorID string, summary *ActivationSummary) error {
	employees, err := s.Directory.List(ctx, directory.Filter{
		DepartmentID:   criteria.DepartmentID,
		EmploymentType: criteria.EmploymentType,
		ActiveOnly:     true,
	})
	if err != nil {
		return apperror.Upstream("employee directory unavailable", err)
	}
	existing, err := s.Provisioner.ExistingEmployeeIDs(ctx, c.ID)
	if err != nil {
		return err
	}

	cfg := c.EligibilityConfig()
	for _, emp := range employees {
		summary.Considered++
		if existing[emp.ID] {
			summary.Existing++
			continue
		}

		verdict := eligibility.Evaluate(emp.TenureFacts(), cfg)
		placeholder := false
		switch {
		case verdict.IsEligible:
		case verdict.Status == eligibility.StatusPendingHRReview && s.HRReviewPlaceholders:
			placeholder = true
		default:
			summary.Skipped[verdict.Status]++
			continue
		}
		if criteria.RewardRule != "" {
			policy := eligibility.PolicyStatus(emp.StartDate, c.EndDate)
			if !eligibility.MatchesRewardRule(criteria.RewardRule, policy.Status) {
				summary.Skipped["reward_rule"]++
				continue
			}
		}

		created, err := s.Provisioner.Provision(ctx, c, emp, verdict)
		if err != nil {
			return err
		}
		if !created {
			summary.Existing++
			continue
		}
		if placeholder {
			summary.Placeholders++
			continue
		}
		summary.Created++
		metrics.RecordAppraisalProvisioned()
		s.emit(ctx, notifications.Event{
			RecipientID:  emp.ID,
			Event:        notifications.EventCycleStarted,
			ResourceType: notifications.ResourceCycle,
			ResourceID:   c.ID,
			ActorID:      actorID,
			Body:         "Appraisal cycle " + c.Name + " has started.",
		})
	}
	return nil
}

func (s *Service) emit(ctx context.Context, ev notifications.Event) {
	if s.Notify != nil {
		s.Notify.Emit(ctx, ev)
	}
}

func (s *Service) Stop(ctx context.Context, id string) (Cycle, error) {
	return s.move(ctx, id, StatusActive, StatusDraft, "only active cycles can be stopped")
}

func (s *Service) Archive(ctx context.Context, id string) (Cycle, error) {
	return s.move(ctx, id, StatusCompleted, StatusArchived, "only completed cycles can be archived")
}

func (s *Service) move(ctx context.Context, id, from, to, message string) (Cycle, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Cycle{}, err
	}
	if c.Status != from {
		return Cycle{}, statusConflict(message, c, from)
	}
	ok, err := s.store.SetStatus(ctx, id, from, to)
	if err != nil {
		return Cycle{}, err
	}
	if !ok {
		return Cycle{}, statusConflict(message, c, from)
	}
	c.Status = to
	return c, nil
}

// Delete removes a cycle together with its untouched appraisals. Any
// appraisal that has left initialStatus blocks the delete.
func (s *Service) Delete(ctx context.Context, id, initialStatus string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == StatusActive {
		return statusConflict("stop the cycle before deleting it", c, StatusDraft, StatusCompleted, StatusArchived)
	}
	blocking, err := s.store.DeleteCycle(ctx, id, initialStatus)
	if errors.Is(err, ErrCycleNotFound) {
		return errNotFound.With("cycleId", id)
	}
	if err != nil {
		return err
	}
	if blocking > 0 {
		return apperror.StateConflict("cycle has appraisals in progress", c.Status).
			With("cycleId", id).
			With("blockingAppraisals", blocking)
	}
	return nil
}
