package nodestate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.NodeState = (*NATSNodeState)(nil)

// DefaultSubjectPrefix is the subject root node updates are published under.
const DefaultSubjectPrefix = "swarm"

// defaultFlushTimeout bounds the flush after a publish when the context
// carries no deadline.
const defaultFlushTimeout = 5 * time.Second

// NATSNodeState publishes every update as JSON on
// "<prefix>.<node>.<round>" and keeps the last delivered update locally.
// The local record only changes once the server has acknowledged the
// flush, so a failed publish leaves Latest untouched.
type NATSNodeState struct {
	local        *MemoryNodeState
	conn         *nats.Conn
	prefix       string
	flushTimeout time.Duration
}

// NATSOption configures a NATSNodeState.
type NATSOption func(*NATSNodeState)

// WithSubjectPrefix overrides DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) NATSOption {
	return func(n *NATSNodeState) { n.prefix = prefix }
}

// WithFlushTimeout overrides the flush timeout used without a deadline.
func WithFlushTimeout(d time.Duration) NATSOption {
	return func(n *NATSNodeState) { n.flushTimeout = d }
}

// NewNATSNodeState creates a node publishing through conn.
func NewNATSNodeState(conn *nats.Conn, key string, opts ...NATSOption) (*NATSNodeState, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if strings.ContainsAny(key, ".*> \t") {
		return nil, fmt.Errorf("node key %q is not a valid subject token", key)
	}
	local, err := NewMemoryNodeState(key)
	if err != nil {
		return nil, err
	}

	n := &NATSNodeState{
		local:        local,
		conn:         conn,
		prefix:       DefaultSubjectPrefix,
		flushTimeout: defaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Key returns the node key.
func (n *NATSNodeState) Key() string { return n.local.Key() }

// Subject returns the subject updates for round are published on.
func (n *NATSNodeState) Subject(round domain.Round) string {
	return Subject(n.prefix, n.Key(), round)
}

// Subject joins prefix, node key and round into a subject.
func Subject(prefix, key string, round domain.Round) string {
	return prefix + "." + key + "." + round.String()
}

// Publish sends the update and records it locally once flushed.
func (n *NATSNodeState) Publish(ctx context.Context, update domain.NodeUpdate) error {
	update.NodeKey = n.Key()
	subject := n.Subject(update.Round)

	if err := ctx.Err(); err != nil {
		return ports.NewPublishError(n.Key(), subject, err)
	}

	data, err := json.Marshal(update)
	if err != nil {
		return ports.NewPublishError(n.Key(), subject, fmt.Errorf("marshal: %w", err))
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return ports.NewPublishError(n.Key(), subject, err)
	}

	if _, ok := ctx.Deadline(); ok {
		err = n.conn.FlushWithContext(ctx)
	} else {
		err = n.conn.FlushTimeout(n.flushTimeout)
	}
	if err != nil {
		return ports.NewPublishError(n.Key(), subject, fmt.Errorf("flush: %w", err))
	}

	return n.local.Publish(context.WithoutCancel(ctx), update)
}

// Latest returns the last update this node delivered.
func (n *NATSNodeState) Latest() (domain.NodeUpdate, bool) { return n.local.Latest() }

// WatchUpdates subscribes to every node's updates under prefix and calls
// handler for each decodable message. Malformed messages are logged and
// skipped.
func WatchUpdates(
	conn *nats.Conn,
	prefix string,
	logger *slog.Logger,
	handler func(domain.NodeUpdate),
) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sub, err := conn.Subscribe(prefix+".>", func(msg *nats.Msg) {
		var update domain.NodeUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			logger.Debug("skipping malformed node update", "subject", msg.Subject, "err", err)
			return
		}
		handler(update)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	return sub, nil
}
