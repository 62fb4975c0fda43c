package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementRecomputed_WireFormat(t *testing.T) {
	event := SettlementRecomputed{
		GroupID:    "g1",
		OwnerID:    "u1",
		Transfers:  []Transfer{{From: "u2", To: "u1", Amount: "33.33"}},
		ComputedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"group_id": "g1",
		"owner_id": "u1",
		"transfers": [{"from": "u2", "to": "u1", "amount": "33.33"}],
		"computed_at": "2024-01-02T03:04:05Z"
	}`, string(body))
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishSettlement(context.Background(), SettlementRecomputed{}))
	assert.NoError(t, p.Close())
}
