package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOAuthStatesExpire(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	states := newOAuthStates(OAuthStateTTL, func() time.Time { return now })

	fresh := states.issue(7)
	stale := states.issue(8)

	now = now.Add(OAuthStateTTL - time.Second)
	teacherID, ok := states.consume(fresh)
	assert.True(t, ok)
	assert.Equal(t, uint(7), teacherID)

	now = now.Add(time.Second)
	_, ok = states.consume(stale)
	assert.False(t, ok)

	// Issuing prunes anything already past its deadline.
	old := states.issue(9)
	now = now.Add(OAuthStateTTL)
	states.issue(9)
	assert.Len(t, states.pending, 1)
	_, ok = states.consume(old)
	assert.False(t, ok)
}
