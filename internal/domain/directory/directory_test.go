package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapDirectory map[string]Employee

func (m mapDirectory) Lookup(_ context.Context, id string) (Employee, error) {
	emp, ok := m[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, nil
}

func (m mapDirectory) List(context.Context, Filter) ([]Employee, error) {
	return nil, nil
}

func TestManagerChainWalksUpward(t *testing.T) {
	dir := mapDirectory{
		"e1": {ID: "e1", ManagerID: "m1"},
		"m1": {ID: "m1", ManagerID: "d1"},
		"d1": {ID: "d1"},
	}
	chain, err := ManagerChain(context.Background(), dir, "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "d1"}, chain)

	ok, err := IsInManagerChain(context.Background(), dir, "e1", "d1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManagerChainStopsOnLoop(t *testing.T) {
	dir := mapDirectory{
		"a": {ID: "a", ManagerID: "b"},
		"b": {ID: "b", ManagerID: "a"},
	}
	chain, err := ManagerChain(context.Background(), dir, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, chain)
}

func TestManagerChainIsDepthCapped(t *testing.T) {
	dir := mapDirectory{}
	for i := 0; i < 30; i++ {
		id := string(rune('a' + i))
		dir[id] = Employee{ID: id, ManagerID: string(rune('a' + i + 1))}
	}
	chain, err := ManagerChain(context.Background(), dir, "a")
	require.NoError(t, err)
	assert.Len(t, chain, MaxChainDepth)
}

func TestManagerChainUnknownEmployee(t *testing.T) {
	_, err := ManagerChain(context.Background(), mapDirectory{}, "ghost")
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}
