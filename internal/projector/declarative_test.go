package projector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
)

// accountSpecs expresses the built-in account rules declaratively.
func accountSpecs() []ir.RuleSpec {
	return []ir.RuleSpec{
		{EventType: EventAccountCreated, Effects: []ir.Effect{
			{Op: ir.OpSet, Field: FieldStatus, Value: ir.IRString(StatusActive)},
			{Op: ir.OpSetFrom, Field: FieldBalance, From: FieldInitialBalance, Default: ir.IRInt(0)},
		}},
		{EventType: EventBalanceCredited, Effects: []ir.Effect{
			{Op: ir.OpAdd, Field: FieldBalance, From: FieldAmount},
		}},
		{EventType: EventFundsWithdrawn, Effects: []ir.Effect{
			{Op: ir.OpSub, Field: FieldBalance, From: FieldAmount},
		}},
	}
}

func TestDeclarative_MatchesBuiltInAccountRules(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)
	appendDemo(t, l)
	mustAppend(t, l, "User-103", EventAccountCreated, nil)
	mustAppend(t, l, "User-103", EventFundsWithdrawn, ir.IRObject{"amount": ir.IRInt(5)})

	declared := NewRegistry()
	for _, spec := range accountSpecs() {
		require.NoError(t, declared.RegisterSpec(spec))
	}

	builtIn := New(l)
	fromSpecs := New(l, WithRegistry(declared))

	for _, agg := range []string{"User-101", "User-102", "User-103"} {
		want, err := builtIn.Rebuild(ctx, agg, pendingSeed())
		require.NoError(t, err)
		got, err := fromSpecs.Rebuild(ctx, agg, pendingSeed())
		require.NoError(t, err)
		assert.Equal(t, want, got, agg)
	}
}

func TestDeclarative_SetFromWithoutDefaultLeavesStateAlone(t *testing.T) {
	l := newTestLog(t)
	mustAppend(t, l, "User-101", "Renamed", ir.IRObject{})
	mustAppend(t, l, "User-101", "Renamed", ir.IRObject{"name": ir.IRString("Ada")})

	r := NewRegistry()
	require.NoError(t, r.RegisterSpec(ir.RuleSpec{EventType: "Renamed", Effects: []ir.Effect{
		{Op: ir.OpSetFrom, Field: "name", From: "name"},
	}}))

	state, err := New(l, WithRegistry(r)).Rebuild(context.Background(), "User-101", ir.IRObject{"name": ir.IRString("?")})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Ada"), state["name"])
}

func TestDeclarative_StrictAddRequiresField(t *testing.T) {
	l := newTestLog(t)
	mustAppend(t, l, "User-101", "InterestAccrued", ir.IRObject{})

	r := NewRegistry()
	require.NoError(t, r.RegisterSpec(ir.RuleSpec{EventType: "InterestAccrued", Effects: []ir.Effect{
		{Op: ir.OpAdd, Field: FieldBalance, From: "interest"},
	}}))

	_, err := New(l, WithRegistry(r), WithMode(ModeStrict)).Rebuild(context.Background(), "User-101", nil)
	require.Error(t, err)
	assert.True(t, eventlog.IsMalformedPayload(err))
}

func TestDeclarative_SpecValueIsCopied(t *testing.T) {
	value := ir.IRObject{"reason": ir.IRString("fraud")}
	fn, err := Declarative(ir.RuleSpec{EventType: "Flagged", Effects: []ir.Effect{
		{Op: ir.OpSet, Field: "flag", Value: value},
	}})
	require.NoError(t, err)

	value["reason"] = ir.IRString("changed after compile")

	state, err := fn(ir.IRObject{}, newPayload(ir.Event{EventType: "Flagged"}, ModeLenient, nil))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"reason": ir.IRString("fraud")}, state["flag"])
}

func TestDeclarative_RejectsInvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec ir.RuleSpec
		want string
	}{
		{"no type", ir.RuleSpec{Effects: []ir.Effect{{Op: ir.OpSet, Field: "x", Value: ir.IRInt(1)}}}, "event type"},
		{"no effects", ir.RuleSpec{EventType: "X"}, "no effects"},
		{"no field", ir.RuleSpec{EventType: "X", Effects: []ir.Effect{{Op: ir.OpSet, Value: ir.IRInt(1)}}}, "field is required"},
		{"set without value", ir.RuleSpec{EventType: "X", Effects: []ir.Effect{{Op: ir.OpSet, Field: "x"}}}, "requires a value"},
		{"add without from", ir.RuleSpec{EventType: "X", Effects: []ir.Effect{{Op: ir.OpAdd, Field: "x"}}}, "add requires from"},
		{"unknown op", ir.RuleSpec{EventType: "X", Effects: []ir.Effect{{Op: "mul", Field: "x"}}}, `unknown op "mul"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Declarative(tt.spec)
			require.Error(t, err)
			assert.True(t, eventlog.IsInvalidArgument(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
