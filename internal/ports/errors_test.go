package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishError(t *testing.T) {
	cause := errors.New("nats: connection closed")
	err := NewPublishError("node-1", "swarm.node-1.final", cause)

	assert.Equal(t, "publish error: node=node-1, subject=swarm.node-1.final, err=nats: connection closed", err.Error())
	assert.True(t, errors.Is(err, ErrPublishFailed), "every publish error matches ErrPublishFailed")
	assert.True(t, errors.Is(err, cause), "the cause stays reachable")
	assert.False(t, errors.Is(err, ErrConfigNotFound))
}

func TestSample_Details(t *testing.T) {
	built := 0
	lazy := Sample{FieldsFunc: func() []SampleField {
		built++
		return []SampleField{{Label: "Extracted", Value: "A1"}}
	}}
	assert.Zero(t, built)
	assert.Equal(t, []SampleField{{Label: "Extracted", Value: "A1"}}, lazy.Details())
	assert.Equal(t, 1, built)

	eager := Sample{Fields: []SampleField{{Label: "a", Value: "b"}}, FieldsFunc: func() []SampleField {
		t.Fatal("FieldsFunc must not run when Fields is set")
		return nil
	}}
	assert.Equal(t, []SampleField{{Label: "a", Value: "b"}}, eager.Details())
	assert.Nil(t, Sample{}.Details())
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("weights.consensus", ErrConfigNotFound)

	assert.Equal(t, "config error: key=weights.consensus, err=configuration not found", err.Error())
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}
