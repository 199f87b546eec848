package goals

import (
	"context"
	"errors"
	"fmt"
	"strconv"

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

const goalColumns = `id::text, employee_id::text, created_by::text, COALESCE(cycle_id::text, ''),
           COALESCE(parent_goal_id::text, ''), title, description, category, priority, weight::float8,
           start_date, target_date, completed_date, progress, status, approval_status,
           rejection_reason, version_number, COALESCE(submitted_by::text, ''), COALESCE(approved_by::text, ''),
           approved_date, withdrawn_at, created_at, updated_at`

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.EmployeeID, &g.CreatedBy, &g.CycleID, &g.ParentGoalID, &g.Title, &g.Description,
		&g.Category, &g.Priority, &g.Weight, &g.StartDate, &g.TargetDate, &g.CompletedDate, &g.Progress,
		&g.Status, &g.ApprovalStatus, &g.RejectionReason, &g.VersionNumber, &g.SubmittedBy, &g.ApprovedBy,
		&g.ApprovedDate, &g.WithdrawnAt, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrGoalNotFound
	}
	return g, err
}

func (s *Store) CreateGoal(ctx context.Context, g Goal) (Goal, error) {
	out, err := scanGoal(s.DB.QueryRow(ctx, `
    INSERT INTO goals (employee_id, created_by, cycle_id, parent_goal_id, title, description, category,
      priority, weight, start_date, target_date, progress, status, approval_status, version_number)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    RETURNING `+goalColumns,
		g.EmployeeID, g.CreatedBy, nullIfEmpty(g.CycleID), nullIfEmpty(g.ParentGoalID), g.Title, g.Description,
		g.Category, g.Priority, g.Weight, g.StartDate, g.TargetDate, g.Progress, g.Status, g.ApprovalStatus, g.VersionNumber))
	if err != nil {
		return Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return out, nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (Goal, error) {
	return scanGoal(s.DB.QueryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = $1", id))
}

func (s *Store) ListGoals(ctx context.Context, filter ListFilter) ([]Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals WHERE withdrawn_at IS NULL"
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += " AND " + clause + " $" + strconv.Itoa(len(args))
	}
	if filter.EmployeeID != "" {
		add("employee_id =", filter.EmployeeID)
	}
	if filter.CycleID != "" {
		add("cycle_id =", filter.CycleID)
	}
	if filter.ApprovalStatus != "" {
		add("approval_status =", filter.ApprovalStatus)
	}
	if filter.EmployeeIDs != nil {
		args = append(args, filter.EmployeeIDs)
		query += " AND employee_id::text = ANY($" + strconv.Itoa(len(args)) + ")"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateContent(ctx context.Context, id, expectedApproval string, c Content) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goals
    SET title = $3, description = $4, category = $5, priority = $6, weight = $7,
        start_date = $8, target_date = $9, parent_goal_id = $10, updated_at = now()
    WHERE id = $1 AND approval_status = $2 AND withdrawn_at IS NULL
  `, id, expectedApproval, c.Title, c.Description, c.Category, c.Priority, c.Weight, c.StartDate, c.TargetDate, nullIfEmpty(c.ParentGoalID))
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleTransition
	}
	return nil
}

func (s *Store) UpdateProgress(ctx context.Context, id string, in ProgressInput) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goals SET progress = $2, status = $3, completed_date = $4, updated_at = now()
    WHERE id = $1 AND withdrawn_at IS NULL
  `, id, in.Progress, in.Status, in.CompletedDate)
	if err != nil {
		return fmt.Errorf("update goal progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (s *Store) WithdrawGoal(ctx context.Context, id, expectedApproval string, a AuditEntry) error {
	return db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
      UPDATE goals SET withdrawn_at = now(), parent_goal_id = NULL, updated_at = now()
      WHERE id = $1 AND approval_status = $2 AND withdrawn_at IS NULL
    `, id, expectedApproval)
		if err != nil {
			return fmt.Errorf("withdraw goal: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleTransition
		}
		if _, err := tx.Exec(ctx, "UPDATE goals SET parent_goal_id = NULL, updated_at = now() WHERE parent_goal_id = $1", id); err != nil {
			return fmt.Errorf("detach child goals: %w", err)
		}
		_, err = tx.Exec(ctx, `
      INSERT INTO goal_audit (goal_id, old_status, new_status, actor_id, actor_role, version_number, comment)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, id, a.OldStatus, a.NewStatus, a.ActorID, a.ActorRole, a.VersionNumber, a.Comment)
		return err
	})
}

func (s *Store) ApplyTransition(ctx context.Context, t Transition) (Goal, error) {
	var out Goal
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		if v := t.Snapshot; v != nil {
			if _, err := tx.Exec(ctx, `
        INSERT INTO goal_versions (goal_id, version_number, title, description, category, priority, weight, start_date, target_date, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
      `, v.GoalID, v.VersionNumber, v.Title, v.Description, v.Category, v.Priority, v.Weight, v.StartDate, v.TargetDate, v.CreatedBy); err != nil {
				if db.IsUniqueViolation(err) {
					return ErrStaleTransition
				}
				return err
			}
		}

		g := t.Goal
		updated, err := scanGoal(tx.QueryRow(ctx, `
      UPDATE goals
      SET approval_status = $3, version_number = $4, rejection_reason = $5,
          approved_by = $6, approved_date = $7, submitted_by = $8, updated_at = now()
      WHERE id = $1 AND approval_status = $2 AND withdrawn_at IS NULL
      RETURNING `+goalColumns,
			g.ID, t.From, g.ApprovalStatus, g.VersionNumber, g.RejectionReason, nullIfEmpty(g.ApprovedBy), g.ApprovedDate,
			nullIfEmpty(g.SubmittedBy)))
		if errors.Is(err, ErrGoalNotFound) {
			return ErrStaleTransition
		}
		if err != nil {
			return err
		}

		a := t.Audit
		if _, err := tx.Exec(ctx, `
      INSERT INTO goal_audit (goal_id, old_status, new_status, actor_id, actor_role, version_number, comment)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, g.ID, a.OldStatus, a.NewStatus, a.ActorID, a.ActorRole, a.VersionNumber, a.Comment); err != nil {
			return err
		}
		out = updated
		return nil
	})
	return out, err
}

func (s *Store) ListAudit(ctx context.Context, goalID string) ([]AuditEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, goal_id::text, old_status, new_status, actor_id::text, actor_role, version_number, comment, created_at
    FROM goal_audit
    WHERE goal_id = $1
    ORDER BY created_at DESC, id DESC
  `, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var a AuditEntry
		if err := rows.Scan(&a.ID, &a.GoalID, &a.OldStatus, &a.NewStatus, &a.ActorID, &a.ActorRole, &a.VersionNumber, &a.Comment, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListVersions(ctx context.Context, goalID string) ([]Version, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT goal_id::text, version_number, title, description, category, priority, weight::float8,
           start_date, target_date, created_by::text, created_at
    FROM goal_versions
    WHERE goal_id = $1
    ORDER BY version_number DESC
  `, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.GoalID, &v.VersionNumber, &v.Title, &v.Description, &v.Category, &v.Priority, &v.Weight, &v.StartDate, &v.TargetDate, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) CountByApprovalStatus(ctx context.Context, employeeID, cycleID string) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT approval_status, COUNT(1)
    FROM goals
    WHERE employee_id = $1 AND cycle_id = $2 AND withdrawn_at IS NULL
    GROUP BY approval_status
  `, employeeID, cycleID)
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

func (s *Store) CountByStatus(ctx context.Context, employeeID string) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1)
    FROM goals
    WHERE employee_id = $1 AND withdrawn_at IS NULL
    GROUP BY status
  `, employeeID)
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

const keyResultColumns = `id::text, goal_id::text, title, description, target_value::float8, current_value::float8,
           unit, status, due_date, created_at, updated_at`

func scanKeyResult(row pgx.Row) (KeyResult, error) {
	var kr KeyResult
	err := row.Scan(&kr.ID, &kr.GoalID, &kr.Title, &kr.Description, &kr.TargetValue, &kr.CurrentValue,
		&kr.Unit, &kr.Status, &kr.DueDate, &kr.CreatedAt, &kr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return KeyResult{}, ErrKeyResultNotFound
	}
	return kr, err
}

func (s *Store) CreateKeyResult(ctx context.Context, kr KeyResult) (KeyResult, error) {
	out, err := scanKeyResult(s.DB.QueryRow(ctx, `
    INSERT INTO goal_key_results (goal_id, title, description, target_value, current_value, unit, status, due_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+keyResultColumns,
		kr.GoalID, kr.Title, kr.Description, kr.TargetValue, kr.CurrentValue, kr.Unit, kr.Status, kr.DueDate))
	if err != nil {
		return KeyResult{}, fmt.Errorf("create key result: %w", err)
	}
	return out, nil
}

func (s *Store) GetKeyResult(ctx context.Context, goalID, id string) (KeyResult, error) {
	return scanKeyResult(s.DB.QueryRow(ctx, "SELECT "+keyResultColumns+" FROM goal_key_results WHERE goal_id = $1 AND id = $2", goalID, id))
}

func (s *Store) UpdateKeyResult(ctx context.Context, kr KeyResult) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goal_key_results SET current_value = $3, status = $4, updated_at = now()
    WHERE goal_id = $1 AND id = $2
  `, kr.GoalID, kr.ID, kr.CurrentValue, kr.Status)
	if err != nil {
		return fmt.Errorf("update key result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyResultNotFound
	}
	return nil
}

func (s *Store) ListKeyResults(ctx context.Context, goalID string) ([]KeyResult, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+keyResultColumns+" FROM goal_key_results WHERE goal_id = $1 ORDER BY created_at, id", goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KeyResult
	for rows.Next() {
		kr, err := scanKeyResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, kr)
	}
	return out, rows.Err()
}

func (s *Store) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO goal_comments (goal_id, author_id, content, comment_type)
    VALUES ($1,$2,$3,$4)
    RETURNING id::text, created_at
  `, c.GoalID, c.AuthorID, c.Content, c.CommentType).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("create goal comment: %w", err)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, goalID string) ([]Comment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, goal_id::text, author_id::text, content, comment_type, created_at
    FROM goal_comments
    WHERE goal_id = $1
    ORDER BY created_at, id
  `, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.GoalID, &c.AuthorID, &c.Content, &c.CommentType, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
