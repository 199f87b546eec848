package directory

import (
	"context"
	"errors"
)

const MaxChainDepth = 10

var ErrEmployeeNotFound = errors.New("employee not found")

type Directory interface {
	Lookup(ctx context.Context, employeeID string) (Employee, error)
	List(ctx context.Context, filter Filter) ([]Employee, error)
}

// ManagerChain walks manager links upward from employeeID. The walk stops at
// the top of the hierarchy, on a repeated id, or after MaxChainDepth hops.
func ManagerChain(ctx context.Context, dir Directory, employeeID string) ([]string, error) {
	seen := map[string]bool{employeeID: true}
	var chain []string
	current := employeeID
	for range MaxChainDepth {
		emp, err := dir.Lookup(ctx, current)
		if err != nil {
			return chain, err
		}
		if emp.ManagerID == "" || seen[emp.ManagerID] {
			break
		}
		seen[emp.ManagerID] = true
		chain = append(chain, emp.ManagerID)
		current = emp.ManagerID
	}
	return chain, nil
}

// IsInManagerChain reports whether managerID sits above employeeID.
func IsInManagerChain(ctx context.Context, dir Directory, employeeID, managerID string) (bool, error) {
	chain, err := ManagerChain(ctx, dir, employeeID)
	if err != nil {
		return false, err
	}
	for _, id := range chain {
		if id == managerID {
			return true, nil
		}
	}
	return false, nil
}

func normalizedFilterValue(value string) string {
	if value == "all" {
		return ""
	}
	return value
}
