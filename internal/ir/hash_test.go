package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDigestDeterminism(t *testing.T) {
	e := Event{ID: 1, AggregateID: "User-101", EventType: "AccountCreated", Timestamp: 1700000000000,
		Payload: IRObject{"initialBalance": IRInt(100)}}

	d1, err := EventDigest(e)
	require.NoError(t, err)
	d2, err := EventDigest(e.Clone())
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestEventDigestChangesWithInput(t *testing.T) {
	base := Event{ID: 1, AggregateID: "User-101", EventType: "BalanceCredited", Payload: IRObject{"amount": IRInt(50)}}

	variants := []Event{base, base, base, base}
	variants[0].ID = 2
	variants[1].AggregateID = "User-102"
	variants[2].EventType = "FundsWithdrawn"
	variants[3].Payload = IRObject{"amount": IRInt(51)}

	want, err := EventDigest(base)
	require.NoError(t, err)
	for _, v := range variants {
		got, err := EventDigest(v)
		require.NoError(t, err)
		assert.NotEqual(t, want, got)
	}
}

func TestStateDigestIgnoresKeyInsertionOrder(t *testing.T) {
	a := IRObject{}
	a["status"] = IRString("active")
	a["balance"] = IRInt(130)

	b := IRObject{}
	b["balance"] = IRInt(130)
	b["status"] = IRString("active")

	assert.Equal(t, MustStateDigest(a), MustStateDigest(b))
	assert.NotEqual(t, MustStateDigest(a), MustStateDigest(IRObject{"status": IRString("active")}))
}

func TestLogDigestDetectsReordering(t *testing.T) {
	e1 := Event{ID: 1, AggregateID: "A", EventType: "X"}
	e2 := Event{ID: 2, AggregateID: "B", EventType: "Y"}

	d1, err := LogDigest([]Event{e1, e2})
	require.NoError(t, err)
	d2, err := LogDigest([]Event{e2, e1})
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestDomainSeparation(t *testing.T) {
	assert.NotEqual(t, hashWithDomain(DomainEvent, []byte("{}")), hashWithDomain(DomainState, []byte("{}")))
}
