package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBidStatus_CanTransitionTo(t *testing.T) {
	all := []BidStatus{BidStatusPending, BidStatusPaid, BidStatusRefunded}
	allowed := map[[2]BidStatus]bool{
		{BidStatusPending, BidStatusPaid}:  true,
		{BidStatusPaid, BidStatusRefunded}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]BidStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, BidStatus("cancelled").CanTransitionTo(BidStatusPaid))
}

func TestBidStatus_Terminal(t *testing.T) {
	assert.False(t, BidStatusPending.IsTerminal())
	assert.False(t, BidStatusPaid.IsTerminal())
	assert.True(t, BidStatusRefunded.IsTerminal())
	assert.False(t, BidStatus("bogus").IsTerminal())
	assert.False(t, BidStatus("bogus").Valid())
}

func TestPayoutStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PayoutStatusPending.CanTransitionTo(PayoutStatusPaid))
	assert.True(t, PayoutStatusPaid.CanTransitionTo(PayoutStatusRefunded))

	assert.False(t, PayoutStatusPending.CanTransitionTo(PayoutStatusRefunded))
	assert.False(t, PayoutStatusPaid.CanTransitionTo(PayoutStatusPending))
	assert.False(t, PayoutStatusRefunded.CanTransitionTo(PayoutStatusPaid))
	assert.False(t, PayoutStatusRefunded.CanTransitionTo(PayoutStatusPending))
	assert.True(t, PayoutStatusRefunded.IsTerminal())
}

func TestNewOutboxMessage(t *testing.T) {
	msg, err := NewOutboxMessage("settlement.events", "key-1", LifecycleEvent{
		Type:        EventBidPaid,
		BidID:       "b1",
		Status:      string(BidStatusPaid),
		AmountCents: 5000,
		Version:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, OutboxStatusPending, msg.Status)
	assert.Equal(t, "key-1", msg.MessageKey)

	var decoded LifecycleEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, EventBidPaid, decoded.Type)
	assert.Equal(t, int64(5000), decoded.AmountCents)
}
