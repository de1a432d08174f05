// Package domain contains pure, dependency-free domain models and types
// for scoring and aggregating debate rounds.
package domain

import (
	"maps"
	"reflect"
	"time"
)

// Key is a typed key into State. Get returns the key's type directly, so
// readers of a node record never need a type assertion.
type Key[T any] struct{ name string }

// Keys of the node record.
var (
	// KeyRound stores the round of the latest aggregation.
	KeyRound = Key[Round]{"round"}

	// KeyOutputs stores the latest published RoundOutput.
	KeyOutputs = Key[RoundOutput]{"outputs"}

	// KeyRewards stores the latest total reward vector.
	KeyRewards = Key[[]float64]{"rewards"}

	// KeyUpdateID stores the identifier of the latest NodeUpdate.
	KeyUpdateID = Key[string]{"update_id"}

	// KeyUpdatedAt stores when the latest update was written.
	KeyUpdatedAt = Key[time.Time]{"updated_at"}
)

// Name returns the key's string form.
func (k Key[T]) Name() string { return k.name }

// deepCopyValue copies slices, maps, pointers and exported struct fields
// so that values stored in or read from a State share no memory with the
// caller. Nil slices and maps come back empty.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}
	if t, ok := value.(time.Time); ok {
		return t
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(reflect.ValueOf(deepCopyValue(v.Index(i).Interface())))
		}
		return out.Interface()

	case reflect.Map:
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(
				reflect.ValueOf(deepCopyValue(iter.Key().Interface())),
				reflect.ValueOf(deepCopyValue(iter.Value().Interface())),
			)
		}
		return out.Interface()

	case reflect.Pointer:
		if v.IsNil() {
			return value
		}
		out := reflect.New(v.Elem().Type())
		out.Elem().Set(reflect.ValueOf(deepCopyValue(v.Elem().Interface())))
		return out.Interface()

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := range v.NumField() {
			if out.Field(i).CanSet() {
				out.Field(i).Set(reflect.ValueOf(deepCopyValue(v.Field(i).Interface())))
			}
		}
		return out.Interface()

	default:
		return value
	}
}

// State is an immutable record of a node's latest round. Writes return a
// new State, so a reader holding an older State never observes a later
// overwrite. A State is safe to share across goroutines.
type State struct {
	data map[string]any
}

// NewState returns an empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get returns a copy of the value stored under key. ok is false when the
// key is absent.
func Get[T any](s State, key Key[T]) (T, bool) {
	value, exists := s.data[key.name]
	if !exists {
		var zero T
		return zero, false
	}
	val, ok := deepCopyValue(value).(T)
	return val, ok
}

// WithUpdate returns a new State holding u as the node's latest update.
// Every key is rewritten, so nothing from the previous update survives.
func (s State) WithUpdate(u NodeUpdate) State {
	data := maps.Clone(s.data)
	if data == nil {
		data = make(map[string]any)
	}
	data[KeyRound.name] = u.Round
	data[KeyOutputs.name] = deepCopyValue(u.Outputs)
	data[KeyRewards.name] = deepCopyValue(u.Rewards)
	data[KeyUpdateID.name] = u.ID
	data[KeyUpdatedAt.name] = u.Timestamp
	return State{data: data}
}

// Update reconstructs the latest NodeUpdate held by the State. ok is false
// when nothing has been written yet.
func (s State) Update(nodeKey string) (NodeUpdate, bool) {
	id, ok := Get(s, KeyUpdateID)
	if !ok {
		return NodeUpdate{}, false
	}
	round, _ := Get(s, KeyRound)
	outputs, _ := Get(s, KeyOutputs)
	rewards, _ := Get(s, KeyRewards)
	at, _ := Get(s, KeyUpdatedAt)
	return NodeUpdate{
		ID:        id,
		NodeKey:   nodeKey,
		Round:     round,
		Outputs:   outputs,
		Rewards:   rewards,
		Timestamp: at,
	}, true
}
