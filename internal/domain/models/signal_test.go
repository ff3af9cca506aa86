package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]SignalState{
		{StateCreated, StateWaitingForEntry},
		{StateWaitingForEntry, StateEntryHit},
		{StateWaitingForEntry, StateCancelled},
		{StateEntryHit, StateTPHit},
		{StateEntryHit, StateSLHit},
	}
	for _, e := range legal {
		assert.True(t, CanTransition(e[0], e[1]), "%s -> %s should be legal", e[0], e[1])
	}

	illegal := [][2]SignalState{
		{StateCreated, StateEntryHit},
		{StateCreated, StateCancelled},
		{StateWaitingForEntry, StateTPHit},
		{StateWaitingForEntry, StateSLHit},
		{StateEntryHit, StateCancelled},
		{StateEntryHit, StateWaitingForEntry},
		{StateTPHit, StateSLHit},
		{StateSLHit, StateEntryHit},
		{StateCancelled, StateWaitingForEntry},
		{StateEntryHit, StateEntryHit},
	}
	for _, e := range illegal {
		assert.False(t, CanTransition(e[0], e[1]), "%s -> %s should be illegal", e[0], e[1])
	}
}

func TestStatePredicates(t *testing.T) {
	assert.False(t, StateCreated.IsTerminal())
	assert.False(t, StateWaitingForEntry.IsTerminal())
	assert.False(t, StateEntryHit.IsTerminal())
	assert.True(t, StateTPHit.IsTerminal())
	assert.True(t, StateSLHit.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())

	assert.True(t, StateWaitingForEntry.IsActive())
	assert.True(t, StateEntryHit.IsActive())
	assert.False(t, StateCreated.IsActive())
	assert.False(t, StateCancelled.IsActive())
}

func TestResultFor(t *testing.T) {
	assert.Equal(t, ResultProfit, ResultFor(StateTPHit))
	assert.Equal(t, ResultLoss, ResultFor(StateSLHit))
	assert.Equal(t, ResultCancelled, ResultFor(StateCancelled))
	assert.Equal(t, SignalResult(""), ResultFor(StateEntryHit))
	assert.Equal(t, SignalResult(""), ResultFor(StateWaitingForEntry))
}

func TestSignalExpired(t *testing.T) {
	now := time.Now()
	s := &Signal{ExpiryAt: now.Add(15 * time.Minute)}

	assert.False(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(15*time.Minute)))
	assert.True(t, s.Expired(now.Add(15*time.Minute+time.Second)))
}
