package appraisals

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const appraisalColumns = `id::text, cycle_id::text, employee_id::text, COALESCE(manager_id::text, ''),
           eligibility_status, eligibility_reason, is_prorated, status,
           self_submitted, self_submitted_at, manager_submitted, manager_submitted_at,
           self_assessment, manager_assessment, goal_ratings, manager_goal_ratings, overall_rating,
           meeting_date, meeting_notes, acknowledged, acknowledged_at, acknowledgement_comments,
           created_at, updated_at`

func scanAppraisal(row pgx.Row) (Appraisal, error) {
	var a Appraisal
	err := row.Scan(&a.ID, &a.CycleID, &a.EmployeeID, &a.ManagerID,
		&a.EligibilityStatus, &a.EligibilityReason, &a.IsProrated, &a.Status,
		&a.SelfSubmitted, &a.SelfSubmittedAt, &a.ManagerSubmitted, &a.ManagerSubmittedAt,
		&a.SelfAssessment, &a.ManagerAssessment, &a.GoalRatings, &a.ManagerGoalRatings, &a.OverallRating,
		&a.MeetingDate, &a.MeetingNotes, &a.Acknowledged, &a.AcknowledgedAt, &a.AcknowledgementComments,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appraisal{}, ErrAppraisalNotFound
	}
	return a, err
}

func (s *Store) InsertAppraisal(ctx context.Context, a Appraisal) (string, bool, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisals (cycle_id, employee_id, manager_id, eligibility_status, eligibility_reason, is_prorated, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (employee_id, cycle_id) DO NOTHING
    RETURNING id::text
  `, a.CycleID, a.EmployeeID, nullIfEmpty(a.ManagerID), a.EligibilityStatus, a.EligibilityReason, a.IsProrated, a.Status).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("insert appraisal: %w", err)
	}
	return id, true, nil
}

func (s *Store) GetAppraisal(ctx context.Context, id string) (Appraisal, error) {
	return scanAppraisal(s.DB.QueryRow(ctx, "SELECT "+appraisalColumns+" FROM appraisals WHERE id = $1", id))
}

func (s *Store) FindByEmployeeCycle(ctx context.Context, employeeID, cycleID string) (Appraisal, error) {
	return scanAppraisal(s.DB.QueryRow(ctx, "SELECT "+appraisalColumns+" FROM appraisals WHERE employee_id = $1 AND cycle_id = $2", employeeID, cycleID))
}

func (s *Store) ExistingEmployeeIDs(ctx context.Context, cycleID string) (map[string]bool, error) {
	rows, err := s.DB.Query(ctx, "SELECT employee_id::text FROM appraisals WHERE cycle_id = $1", cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *Store) ListAppraisals(ctx context.Context, filter ListFilter) ([]Appraisal, error) {
	query := "SELECT " + appraisalColumns + " FROM appraisals WHERE 1=1"
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += " AND " + clause + " $" + strconv.Itoa(len(args))
	}
	if filter.CycleID != "" {
		add("cycle_id =", filter.CycleID)
	}
	if filter.Status != "" {
		add("status =", filter.Status)
	}
	if filter.EmployeeID != "" {
		add("employee_id =", filter.EmployeeID)
	}
	if filter.ManagerID != "" {
		add("manager_id =", filter.ManagerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appraisals: %w", err)
	}
	defer rows.Close()

	var out []Appraisal
	for rows.Next() {
		a, err := scanAppraisal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAppraisal(ctx context.Context, a Appraisal, expectedStatus string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisals
    SET eligibility_status = $3, eligibility_reason = $4, status = $5,
        self_submitted = $6, self_submitted_at = $7, manager_submitted = $8, manager_submitted_at = $9,
        self_assessment = $10, manager_assessment = $11, goal_ratings = $12, manager_goal_ratings = $13,
        overall_rating = $14, meeting_date = $15, meeting_notes = $16,
        acknowledged = $17, acknowledged_at = $18, acknowledgement_comments = $19, updated_at = now()
    WHERE id = $1 AND status = $2
  `, a.ID, expectedStatus, a.EligibilityStatus, a.EligibilityReason, a.Status,
		a.SelfSubmitted, a.SelfSubmittedAt, a.ManagerSubmitted, a.ManagerSubmittedAt,
		a.SelfAssessment, a.ManagerAssessment, ratingsOrEmpty(a.GoalRatings), ratingsOrEmpty(a.ManagerGoalRatings),
		a.OverallRating, a.MeetingDate, a.MeetingNotes,
		a.Acknowledged, a.AcknowledgedAt, a.AcknowledgementComments)
	if err != nil {
		return fmt.Errorf("update appraisal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleAppraisal
	}
	return nil
}

func (s *Store) DeleteAppraisal(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM appraisals WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppraisalNotFound
	}
	return nil
}

func (s *Store) CountByStatus(ctx context.Context, cycleID string) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, "SELECT status, COUNT(1) FROM appraisals WHERE cycle_id = $1 GROUP BY status", cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func ratingsOrEmpty(r map[string]GoalRating) map[string]GoalRating {
	if r == nil {
		return map[string]GoalRating{}
	}
	return r
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
