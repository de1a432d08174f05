// Package nodestate provides implementations of ports.NodeState, the
// record of a node's latest round result.
package nodestate

import (
	"context"
	"errors"
	"sync"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.NodeState = (*MemoryNodeState)(nil)

// ErrEmptyNodeKey is returned when a node is created without a key.
var ErrEmptyNodeKey = errors.New("node key cannot be empty")

// MemoryNodeState keeps a node's latest update in a copy-on-write
// domain.State. Every Publish replaces the previous update.
type MemoryNodeState struct {
	key   string
	mu    sync.RWMutex
	state domain.State
}

// NewMemoryNodeState creates an empty node record.
func NewMemoryNodeState(key string) (*MemoryNodeState, error) {
	if key == "" {
		return nil, ErrEmptyNodeKey
	}
	return &MemoryNodeState{key: key, state: domain.NewState()}, nil
}

// Key returns the node key.
func (m *MemoryNodeState) Key() string { return m.key }

// Publish replaces the node's latest update.
func (m *MemoryNodeState) Publish(ctx context.Context, update domain.NodeUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	update.NodeKey = m.key

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = m.state.WithUpdate(update)
	return nil
}

// Latest returns the most recent update, if any.
func (m *MemoryNodeState) Latest() (domain.NodeUpdate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Update(m.key)
}
