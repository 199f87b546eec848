package cycles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraisal/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const cycleColumns = `id::text, name, description, cycle_type, status, start_date, end_date,
           self_assessment_deadline, manager_review_deadline, minimum_service_months,
           eligibility_cutoff_date, include_probation, proration_allowed, new_joiner_policy,
           COALESCE(created_by::text, ''), created_at, updated_at`

func scanCycle(row pgx.Row) (Cycle, error) {
	var c Cycle
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Type, &c.Status, &c.StartDate, &c.EndDate,
		&c.SelfAssessmentDeadline, &c.ManagerReviewDeadline, &c.MinimumServiceMonths,
		&c.EligibilityCutoffDate, &c.IncludeProbation, &c.ProrationAllowed, &c.NewJoinerPolicy,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrCycleNotFound
	}
	return c, err
}

func (s *Store) CreateCycle(ctx context.Context, c Cycle) (Cycle, error) {
	out, err := scanCycle(s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_cycles (name, description, cycle_type, status, start_date, end_date,
      self_assessment_deadline, manager_review_deadline, minimum_service_months,
      eligibility_cutoff_date, include_probation, proration_allowed, new_joiner_policy, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    RETURNING `+cycleColumns,
		c.Name, c.Description, c.Type, c.Status, c.StartDate, c.EndDate,
		c.SelfAssessmentDeadline, c.ManagerReviewDeadline, c.MinimumServiceMonths,
		c.EligibilityCutoffDate, c.IncludeProbation, c.ProrationAllowed, c.NewJoinerPolicy, nullIfEmpty(c.CreatedBy)))
	if err != nil {
		return Cycle{}, fmt.Errorf("create cycle: %w", err)
	}
	return out, nil
}

func (s *Store) GetCycle(ctx context.Context, id string) (Cycle, error) {
	return scanCycle(s.DB.QueryRow(ctx, "SELECT "+cycleColumns+" FROM appraisal_cycles WHERE id = $1", id))
}

func (s *Store) UpdateCycle(ctx context.Context, c Cycle) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_cycles
    SET name = $2, description = $3, cycle_type = $4, start_date = $5, end_date = $6,
        self_assessment_deadline = $7, manager_review_deadline = $8, minimum_service_months = $9,
        eligibility_cutoff_date = $10, include_probation = $11, proration_allowed = $12,
        new_joiner_policy = $13, updated_at = now()
    WHERE id = $1 AND status = $14
  `, c.ID, c.Name, c.Description, c.Type, c.StartDate, c.EndDate,
		c.SelfAssessmentDeadline, c.ManagerReviewDeadline, c.MinimumServiceMonths,
		c.EligibilityCutoffDate, c.IncludeProbation, c.ProrationAllowed, c.NewJoinerPolicy, c.Status)
	if err != nil {
		return fmt.Errorf("update cycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCycleNotFound
	}
	return nil
}

func (s *Store) ListCycles(ctx context.Context) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+cycleColumns+" FROM appraisal_cycles ORDER BY start_date DESC, created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ActiveCycle(ctx context.Context) (Cycle, error) {
	return scanCycle(s.DB.QueryRow(ctx, "SELECT "+cycleColumns+" FROM appraisal_cycles WHERE status = 'active' LIMIT 1"))
}

func (s *Store) ActivateCycle(ctx context.Context, id string) (*Cycle, error) {
	var conflict *Cycle
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		active, err := scanCycle(tx.QueryRow(ctx, "SELECT "+cycleColumns+" FROM appraisal_cycles WHERE status = 'active' AND id <> $1 FOR UPDATE", id))
		switch {
		case err == nil:
			conflict = &active
			return nil
		case !errors.Is(err, ErrCycleNotFound):
			return err
		}
		tag, err := tx.Exec(ctx, "UPDATE appraisal_cycles SET status = 'active', updated_at = now() WHERE id = $1 AND status IN ('draft','active')", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrCycleNotFound
		}
		return nil
	})
	if err != nil && db.IsUniqueViolation(err) {
		// A concurrent activation committed between our check and update.
		active, lookupErr := s.ActiveCycle(ctx)
		if lookupErr != nil {
			return nil, err
		}
		return &active, nil
	}
	return conflict, err
}

func (s *Store) SetStatus(ctx context.Context, id, from, to string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE appraisal_cycles SET status = $3, updated_at = now() WHERE id = $1 AND status = $2", id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ExpireCycles(ctx context.Context, today time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE appraisal_cycles SET status = 'completed', updated_at = now() WHERE status = 'active' AND end_date < $1", today)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteCycle(ctx context.Context, id, initialStatus string) (int, error) {
	var blocking int
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		var status string
		if err := tx.QueryRow(ctx, "SELECT status FROM appraisal_cycles WHERE id = $1 FOR UPDATE", id).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCycleNotFound
			}
			return err
		}
		if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM appraisals WHERE cycle_id = $1 AND status <> $2", id, initialStatus).Scan(&blocking); err != nil {
			return err
		}
		if blocking > 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, "UPDATE goals SET cycle_id = NULL WHERE cycle_id = $1", id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM appraisals WHERE cycle_id = $1", id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "DELETE FROM appraisal_cycles WHERE id = $1", id)
		return err
	})
	return blocking, err
}

const questionColumns = `id::text, cycle_id::text, question_text, question_type, category,
           sort_order, is_required, is_for_self, is_for_manager, created_at`

func scanQuestion(row pgx.Row) (Question, error) {
	var q Question
	err := row.Scan(&q.ID, &q.CycleID, &q.Text, &q.Type, &q.Category,
		&q.Order, &q.Required, &q.ForSelf, &q.ForManager, &q.CreatedAt)
	return q, err
}

func (s *Store) AddQuestions(ctx context.Context, cycleID string, qs []Question) ([]Question, error) {
	out := make([]Question, 0, len(qs))
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		for _, q := range qs {
			created, err := scanQuestion(tx.QueryRow(ctx, `
        INSERT INTO appraisal_questions (cycle_id, question_text, question_type, category,
          sort_order, is_required, is_for_self, is_for_manager)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING `+questionColumns,
				cycleID, q.Text, q.Type, q.Category, q.Order, q.Required, q.ForSelf, q.ForManager))
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add questions: %w", err)
	}
	return out, nil
}

func (s *Store) ListQuestions(ctx context.Context, cycleID string) ([]Question, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+questionColumns+" FROM appraisal_questions WHERE cycle_id = $1 ORDER BY sort_order, created_at", cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
