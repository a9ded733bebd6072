package eventlog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustledger/internal/ir"
	"github.com/roach88/trustledger/internal/testutil"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return New(WithClock(testutil.NewFixedClock().Now))
}

func TestAppend_AssignsIDsFromOne(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	e1, err := l.Append(ctx, "User-101", "AccountCreated", ir.IRObject{"initialBalance": ir.IRInt(100)})
	require.NoError(t, err)
	e2, err := l.Append(ctx, "User-102", "AccountCreated", nil)
	require.NoError(t, err)
	e3, err := l.Append(ctx, "User-101", "BalanceCredited", ir.IRObject{"amount": ir.IRInt(50)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), e1.ID)
	assert.Equal(t, int64(2), e2.ID)
	assert.Equal(t, int64(3), e3.ID)
	assert.Equal(t, int64(3), l.LastID())
	assert.Equal(t, 3, l.Len())
}

func TestAppend_StampsClockTime(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	e1, err := l.Append(ctx, "User-101", "AccountCreated", nil)
	require.NoError(t, err)
	e2, err := l.Append(ctx, "User-101", "BalanceCredited", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1700000000000), e1.Timestamp)
	assert.Equal(t, int64(1700000000001), e2.Timestamp)
}

func TestAppend_RejectsEmptyArgumentsWithoutAdvancing(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	_, err := l.Append(ctx, "", "AccountCreated", nil)
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))

	_, err = l.Append(ctx, "User-101", "", nil)
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.LastID())

	e, err := l.Append(ctx, "User-101", "AccountCreated", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID, "rejected appends must not consume ids")
}

func TestAppend_NilPayloadStoredAsEmptyObject(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	e, err := l.Append(ctx, "User-101", "AccountCreated", nil)
	require.NoError(t, err)

	assert.NotNil(t, e.Payload)
	assert.Empty(t, e.Payload)
}

func TestAppend_CallerMutationDoesNotReachLog(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	payload := ir.IRObject{"amount": ir.IRInt(50), "meta": ir.IRObject{"channel": ir.IRString("atm")}}
	returned, err := l.Append(ctx, "User-101", "BalanceCredited", payload)
	require.NoError(t, err)

	// Mutate both the input map and the returned record.
	payload["amount"] = ir.IRInt(1)
	payload["meta"].(ir.IRObject)["channel"] = ir.IRString("web")
	returned.Payload["amount"] = ir.IRInt(2)
	returned.AggregateID = "User-999"

	events, err := l.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "User-101", events[0].AggregateID)
	assert.Equal(t, ir.IRInt(50), events[0].Payload["amount"])
	assert.Equal(t, ir.IRString("atm"), events[0].Payload["meta"].(ir.IRObject)["channel"])
}

func TestEvents_ReadersGetCopies(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	_, err := l.Append(ctx, "User-101", "BalanceCredited", ir.IRObject{"amount": ir.IRInt(50)})
	require.NoError(t, err)

	first, err := l.Events(ctx)
	require.NoError(t, err)
	first[0].Payload["amount"] = ir.IRInt(0)
	first[0].ID = 77

	second, err := l.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second[0].ID)
	assert.Equal(t, ir.IRInt(50), second[0].Payload["amount"])
}

func TestEvents_PreservesInterleavedAppendOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	order := []struct{ agg, typ string }{
		{"User-101", "AccountCreated"},
		{"User-102", "AccountCreated"},
		{"User-101", "BalanceCredited"},
		{"User-103", "Unrelated"},
		{"User-102", "FundsWithdrawn"},
	}
	for _, o := range order {
		_, err := l.Append(ctx, o.agg, o.typ, nil)
		require.NoError(t, err)
	}

	events, err := l.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, len(order))
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.ID)
		assert.Equal(t, order[i].agg, e.AggregateID)
		assert.Equal(t, order[i].typ, e.EventType)
	}
}

func TestEvents_EmptyLog(t *testing.T) {
	events, err := newTestLog(t).Events(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestAppend_ConcurrentIDsAreUniqueAndOrdered(t *testing.T) {
	ctx := context.Background()
	l := New()
	const writers, perWriter = 8, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := l.Append(ctx, "User-101", "BalanceCredited", ir.IRObject{"amount": ir.IRInt(1)})
				assert.NoError(t, err)
			}
		}()
	}

	// Concurrent readers must always see a gap-free prefix.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			events, err := l.Events(ctx)
			assert.NoError(t, err)
			for j, e := range events {
				assert.Equal(t, int64(j+1), e.ID)
			}
		}
	}()
	wg.Wait()

	events, err := l.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, writers*perWriter)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.ID, "log order must match id order")
	}
}
