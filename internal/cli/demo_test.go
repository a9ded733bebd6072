package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoCommandText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDemoCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, `#1 User-101 AccountCreated {"initialBalance":100}`)
	assert.Contains(t, output, `#4 User-102 AccountCreated {"initialBalance":500}`)
	assert.Contains(t, output, "--- TrustLedger: Rebuilding State for User-101 ---")
	assert.Contains(t, output, `Rebuilt Current State: {"balance":130,"status":"active"}`)
	assert.Contains(t, output, `Rebuilt Current State: {"balance":500,"status":"active"}`)
	assert.Contains(t, output, "Expected Balance: 100 + 50 - 20 = 130")
}

func TestDemoCommandJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDemoCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status   string `json:"status"`
		LedgerID string `json:"ledger_id"`
		Data     struct {
			Events []struct {
				ID          int64  `json:"eventId"`
				AggregateID string `json:"aggregateId"`
				EventType   string `json:"eventType"`
			} `json:"events"`
			States map[string]map[string]any `json:"states"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.LedgerID)
	require.Len(t, resp.Data.Events, 4)
	for i, e := range resp.Data.Events {
		assert.Equal(t, int64(i+1), e.ID)
	}
	assert.Equal(t, "FundsWithdrawn", resp.Data.Events[2].EventType)
	assert.Equal(t, float64(130), resp.Data.States["User-101"]["balance"])
	assert.Equal(t, float64(500), resp.Data.States["User-102"]["balance"])
	assert.Equal(t, "active", resp.Data.States["User-101"]["status"])
}

func TestDemoCommandSQLiteBackend(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDemoCommand(&RootOptions{Format: "text", Backend: "sqlite"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `Rebuilt Current State: {"balance":130,"status":"active"}`)
}

func TestDemoCommandRejectsArgs(t *testing.T) {
	cmd := NewDemoCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})

	require.Error(t, cmd.Execute())
}
