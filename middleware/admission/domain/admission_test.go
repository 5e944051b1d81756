package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "allowed", Allow.String())
	assert.Equal(t, "unauthenticated", RejectUnauthenticated.String())
	assert.Equal(t, "rate_limited", RejectRateLimited.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestDecision_Allowed(t *testing.T) {
	assert.True(t, Decision{Outcome: Allow}.Allowed())
	assert.False(t, Decision{Outcome: RejectRateLimited}.Allowed())
	assert.False(t, Decision{Outcome: RejectUnauthenticated}.Allowed())
}
