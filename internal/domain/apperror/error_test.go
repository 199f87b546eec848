package apperror

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("activate: %w", StateConflict("cycle already active", "draft", "draft", "active"))
	assert.Equal(t, CodeStateConflict, CodeOf(err))
	assert.Equal(t, "draft", DetailsOf(err)["currentStatus"])
	assert.Equal(t, []string{"draft", "active"}, DetailsOf(err)["allowedStatuses"])
}

func TestCodeOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestDeadlinePassedEchoesDeadline(t *testing.T) {
	err := DeadlinePassed("self assessment deadline passed", time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.True(t, Is(err, CodeDeadlinePassed))
	assert.Equal(t, "2025-03-31", err.Details["deadline"])
}

func TestWithDoesNotMutateOriginal(t *testing.T) {
	base := NotFound("goal not found")
	derived := base.With("goalId", "g1")
	assert.Nil(t, base.Details)
	assert.Equal(t, "g1", derived.Details["goalId"])
}
