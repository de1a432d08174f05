package domain

import (
	"time"
)

// Round identifies one stage of the debate protocol.
type Round string

// Supported rounds.
const (
	// RoundCritique is the stage where each agent compares its peers'
	// submissions and identifies the best one.
	RoundCritique Round = "critique"

	// RoundFinal is the consensus stage where each agent reports the
	// majority choice, restates the question and gives a final answer.
	RoundFinal Round = "final"
)

// String returns the string representation of the round.
func (r Round) String() string { return string(r) }

// Valid reports whether r names a supported round.
func (r Round) Valid() bool { return r == RoundCritique || r == RoundFinal }

// Selector controls what an aggregation publishes to the node state.
type Selector string

// Supported output selectors.
const (
	// SelectMax publishes the highest scoring completion together with
	// the reward vector.
	SelectMax Selector = "max"

	// SelectRewardsOnly publishes the reward vector with an empty
	// RoundOutput.
	SelectRewardsOnly Selector = "rewards_only"

	// SelectNone publishes nothing.
	SelectNone Selector = "none"
)

// Message is one turn of a conversation record.
type Message struct {
	// Role names the speaker of the turn (e.g. "user", "assistant").
	Role string `json:"role" yaml:"role"`

	// Content holds the turn's text.
	Content string `json:"content" yaml:"content"`
}

// Batch is the unit of work for a reward computation: a group of
// completions that share one prompt and one ground truth.
type Batch struct {
	// Prompt is the conversation visible to every candidate. Only the
	// content of its last turn is parsed.
	Prompt []Message `json:"prompt" yaml:"prompt"`

	// Completions holds, per candidate, the sampled alternatives. The
	// first alternative is the canonical one scored.
	Completions [][]Message `json:"completions" yaml:"completions"`

	// GroundTruth is the reference answer, broadcast as GroundTruth[0]
	// to the whole batch.
	GroundTruth []string `json:"ground_truth" yaml:"ground_truth"`
}

// Len returns the number of completions in the batch.
func (b Batch) Len() int { return len(b.Completions) }

// PromptText returns the content of the prompt's last turn, or "" when
// the prompt is empty.
func (b Batch) PromptText() string {
	if len(b.Prompt) == 0 {
		return ""
	}
	return b.Prompt[len(b.Prompt)-1].Content
}

// Responses returns the canonical text of every completion. A completion
// without alternatives reads as "".
func (b Batch) Responses() []string {
	out := make([]string, len(b.Completions))
	for i, alts := range b.Completions {
		if len(alts) > 0 {
			out[i] = alts[0].Content
		}
	}
	return out
}

// Answer returns the broadcast ground truth value.
func (b Batch) Answer() (string, bool) {
	if len(b.GroundTruth) == 0 {
		return "", false
	}
	return b.GroundTruth[0], true
}

// NewBatch builds a batch from plain strings: a single-turn prompt and one
// alternative per completion.
func NewBatch(prompt string, completions []string, groundTruth ...string) Batch {
	comps := make([][]Message, len(completions))
	for i, c := range completions {
		comps[i] = []Message{{Role: "assistant", Content: c}}
	}
	return Batch{
		Prompt:      []Message{{Role: "user", Content: prompt}},
		Completions: comps,
		GroundTruth: groundTruth,
	}
}

// AgentSubmission is one agent's prior-round text recovered from a prompt.
type AgentSubmission struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RoundOutput is the externally published summary of one round.
type RoundOutput struct {
	// Question is the original question restated in the prompt.
	Question string `json:"question"`

	// Answer is the broadcast ground truth.
	Answer string `json:"answer"`

	// PromptText is the parsed prompt turn.
	PromptText string `json:"prompt_text"`

	// Choice binds the choosing node's identity to the selected text.
	Choice map[string]string `json:"choice,omitempty"`
}

// IsZero reports whether the output carries no data.
func (o RoundOutput) IsZero() bool {
	return o.Question == "" && o.Answer == "" && o.PromptText == "" && len(o.Choice) == 0
}

// NodeUpdate is one overwrite of a node's state, as seen by subscribers of
// the node coordination layer.
type NodeUpdate struct {
	// ID uniquely identifies this update (a UUID).
	ID string `json:"id"`

	// NodeKey identifies the node that produced the update.
	NodeKey string `json:"node_key"`

	// Round is the stage that was scored.
	Round Round `json:"round"`

	// Outputs is the published RoundOutput; empty for SelectRewardsOnly.
	Outputs RoundOutput `json:"outputs"`

	// Rewards is the total reward per completion.
	Rewards []float64 `json:"rewards"`

	// Timestamp records when the update was produced.
	Timestamp time.Time `json:"timestamp"`
}
