package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusCreated, StatusPublished},
		{StatusCreated, StatusAssigned},
		{StatusCreated, StatusCancelled},
		{StatusPublished, StatusAssigned},
		{StatusPublished, StatusCancelled},
		{StatusAssigned, StatusInProgress},
		{StatusAssigned, StatusPublished},
		{StatusAssigned, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	ok := make(map[[2]Status]bool, len(allowed))
	for _, tr := range allowed {
		ok[[2]Status{tr.from, tr.to}] = true
		assert.True(t, tr.from.CanTransition(tr.to), "%s -> %s", tr.from, tr.to)
	}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			if ok[[2]Status{from, to}] {
				continue
			}
			assert.False(t, from.CanTransition(to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestTerminalStatusesAllowNothing(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		assert.True(t, terminal.Terminal())
		for _, to := range AllStatuses {
			assert.False(t, terminal.CanTransition(to))
		}
	}
}

func TestClaimable(t *testing.T) {
	assert.True(t, StatusCreated.Claimable())
	assert.True(t, StatusPublished.Claimable())
	for _, s := range []Status{StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled} {
		assert.False(t, s.Claimable())
	}
}

func TestAllowsMaster(t *testing.T) {
	for _, s := range []Status{StatusAssigned, StatusInProgress, StatusCompleted} {
		assert.True(t, s.AllowsMaster())
	}
	for _, s := range []Status{StatusCreated, StatusPublished, StatusCancelled} {
		assert.False(t, s.AllowsMaster())
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("bogus")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)

	_, err = ParseRole("janitor")
	assert.Error(t, err)
}
