package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTransition_FromPending(t *testing.T) {
	tests := []struct {
		event Event
		want  Status
	}{
		{EventQuorumReached, StatusApproved},
		{EventRejected, StatusRejected},
		{EventCancelled, StatusRejected},
		{EventExpired, StatusExpired},
		{EventDriftDetected, StatusStale},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			got, err := Transition(StatusPending, tt.event)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_TerminalStatesAcceptNoEvent(t *testing.T) {
	terminals := []Status{StatusApproved, StatusRejected, StatusExpired, StatusStale}
	events := []Event{EventQuorumReached, EventRejected, EventCancelled, EventExpired, EventDriftDetected}

	for _, status := range terminals {
		for _, event := range events {
			got, err := Transition(status, event)
			assert.ErrorIs(t, err, ErrRotationFinalized, "status=%s event=%s", status, event)
			assert.Equal(t, status, got, "terminal status must not change")
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusStale.IsTerminal())
}

func TestPendingKeyRotation_IsExpired(t *testing.T) {
	now := time.Now().UTC()
	rotation := &PendingKeyRotation{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, rotation.IsExpired(now))
	assert.True(t, rotation.IsExpired(now.Add(time.Hour)), "expiry boundary is inclusive")
	assert.True(t, rotation.IsExpired(now.Add(2*time.Hour)))
}

func TestPendingKeyRotation_Votes(t *testing.T) {
	alice := uuid.Must(uuid.NewV7())
	bob := uuid.Must(uuid.NewV7())
	carol := uuid.Must(uuid.NewV7())

	rotation := &PendingKeyRotation{
		Approvals: []*KeyRotationApproval{
			{UserID: alice, Approved: true},
			{UserID: bob, Approved: false},
		},
	}

	assert.Equal(t, 1, rotation.ApprovalCount(), "rejections do not count toward quorum")
	assert.True(t, rotation.HasVoted(alice))
	assert.True(t, rotation.HasVoted(bob))
	assert.False(t, rotation.HasVoted(carol))
}
