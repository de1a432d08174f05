package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewState verifies that a new State instance is initialized correctly.
func TestNewState(t *testing.T) {
	state := NewState()

	assert.NotNil(t, state.data, "NewState() should initialize the data map.")
	assert.Empty(t, state.data, "NewState() should create an empty state.")
}

// TestState_WithUpdateIsCopyOnWrite checks that writes leave older States
// untouched.
func TestState_WithUpdateIsCopyOnWrite(t *testing.T) {
	base := NewState()
	next := base.WithUpdate(NodeUpdate{ID: "u1", Round: RoundFinal})

	_, ok := Get(base, KeyRound)
	assert.False(t, ok, "WithUpdate() must not modify the original State.")

	got, ok := Get(next, KeyRound)
	require.True(t, ok)
	assert.Equal(t, RoundFinal, got)

	later := next.WithUpdate(NodeUpdate{ID: "u2", Round: RoundCritique})
	old, ok := next.Update("node")
	require.True(t, ok)
	assert.Equal(t, "u1", old.ID)
	latest, _ := later.Update("node")
	assert.Equal(t, "u2", latest.ID)
}

// TestState_DeepCopy ensures callers cannot mutate stored slices or maps.
func TestState_DeepCopy(t *testing.T) {
	rewards := []float64{1, 2, 3}
	outputs := RoundOutput{Choice: map[string]string{"node": "text"}}

	state := NewState().WithUpdate(NodeUpdate{ID: "u", Rewards: rewards, Outputs: outputs})

	rewards[0] = 100
	outputs.Choice["node"] = "mutated"

	storedRewards, _ := Get(state, KeyRewards)
	assert.Equal(t, []float64{1, 2, 3}, storedRewards)

	storedOutputs, _ := Get(state, KeyOutputs)
	assert.Equal(t, "text", storedOutputs.Choice["node"])

	storedRewards[1] = 50
	again, _ := Get(state, KeyRewards)
	assert.Equal(t, 2.0, again[1], "Get() must return a copy.")
}

func TestState_ZeroValue(t *testing.T) {
	var zero State
	_, ok := zero.Update("node")
	assert.False(t, ok)

	got, ok := zero.WithUpdate(NodeUpdate{ID: "u"}).Update("node")
	require.True(t, ok)
	assert.Equal(t, "u", got.ID)
	assert.NotNil(t, got.Rewards)
}

// TestState_WithUpdate verifies that updates overwrite rather than merge.
func TestState_WithUpdate(t *testing.T) {
	first := NodeUpdate{
		ID:        "u1",
		Round:     RoundCritique,
		Outputs:   RoundOutput{Question: "q1", Choice: map[string]string{"n": "a"}},
		Rewards:   []float64{1, 2},
		Timestamp: time.Unix(100, 0),
	}
	second := NodeUpdate{
		ID:        "u2",
		Round:     RoundFinal,
		Outputs:   RoundOutput{Question: "q2"},
		Rewards:   []float64{3},
		Timestamp: time.Unix(200, 0),
	}

	state := NewState().WithUpdate(first).WithUpdate(second)

	got, ok := state.Update("node-x")
	require.True(t, ok)
	assert.Equal(t, "u2", got.ID)
	assert.Equal(t, "node-x", got.NodeKey)
	assert.Equal(t, RoundFinal, got.Round)
	assert.Equal(t, "q2", got.Outputs.Question)
	assert.Empty(t, got.Outputs.Choice, "previous choice must not survive an overwrite")
	assert.Equal(t, []float64{3}, got.Rewards)
	assert.True(t, got.Timestamp.Equal(time.Unix(200, 0)))
}

func TestState_UpdateMissing(t *testing.T) {
	_, ok := NewState().Update("node")
	assert.False(t, ok)
}

// TestState_ConcurrentAccess reads a shared State from many goroutines.
func TestState_ConcurrentAccess(t *testing.T) {
	state := NewState().WithUpdate(NodeUpdate{ID: "u", Rewards: []float64{1, 2, 3}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := Get(state, KeyRewards)
			assert.True(t, ok)
			assert.Len(t, got, 3)
		}()
	}
	wg.Wait()
}
