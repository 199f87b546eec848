package directory

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

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeColumns = `id::text, name, COALESCE(email, ''), start_date,
           COALESCE(manager_id::text, ''), COALESCE(department_id, ''),
           COALESCE(employment_type, ''), active`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.Name, &emp.Email, &emp.StartDate, &emp.ManagerID, &emp.DepartmentID, &emp.EmploymentType, &emp.Active)
	return emp, err
}

func (s *Store) Lookup(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id = $1
  `, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("lookup employee: %w", err)
	}
	return emp, nil
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Employee, error) {
	query := `
    SELECT ` + employeeColumns + `
    FROM employees
    WHERE 1=1
  `
	var args []any
	if dep := normalizedFilterValue(filter.DepartmentID); dep != "" {
		args = append(args, dep)
		query += " AND department_id = $" + strconv.Itoa(len(args))
	}
	if et := normalizedFilterValue(filter.EmploymentType); et != "" {
		args = append(args, et)
		query += " AND employment_type = $" + strconv.Itoa(len(args))
	}
	if filter.ActiveOnly {
		query += " AND active = true"
	}
	query += " ORDER BY name, id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (id, name, email, start_date, manager_id, department_id, employment_type, active)
    VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5::uuid, $6, $7, $8)
    ON CONFLICT (id) DO UPDATE
      SET name = EXCLUDED.name,
          email = EXCLUDED.email,
          start_date = EXCLUDED.start_date,
          manager_id = EXCLUDED.manager_id,
          department_id = EXCLUDED.department_id,
          employment_type = EXCLUDED.employment_type,
          active = EXCLUDED.active,
          updated_at = now()
    RETURNING id::text
  `, nullIfEmpty(emp.ID), emp.Name, nullIfEmpty(emp.Email), emp.StartDate, nullIfEmpty(emp.ManagerID), nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.EmploymentType), emp.Active).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert employee: %w", err)
	}
	return id, nil
}

func (s *Store) EmailByID(ctx context.Context, employeeID string) (string, error) {
	var email string
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(email, '') FROM employees WHERE id = $1", employeeID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
