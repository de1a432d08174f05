package testutils

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/ahrav/go-tally/internal/domain"
)

// NonePhrase is the critique choice claiming no peer is correct.
const NonePhrase = "None"

// DebateCase is one synthetic arithmetic debate with both rounds' batches
// and the index of the completion a correct scorer should prefer.
type DebateCase struct {
	Question string
	Answer   string
	Peers    []domain.AgentSubmission
	// AllWrong is set when no peer answered correctly.
	AllWrong bool

	Critique     domain.Batch
	BestCritique int

	Final     domain.Batch
	BestFinal int
}

// GenerateDebateDataset creates size synthetic debates. The seed controls
// randomization so tests are reproducible. Roughly one debate in five has
// no correct peer.
func GenerateDebateDataset(size int, seed int64) []DebateCase {
	rng := rand.New(rand.NewSource(seed))
	cases := make([]DebateCase, 0, size)
	for i := range size {
		cases = append(cases, generateDebate(rng, i))
	}
	return cases
}

func generateDebate(rng *rand.Rand, index int) DebateCase {
	a, b := rng.Intn(99)+1, rng.Intn(99)+1
	question := fmt.Sprintf("Question %d: what is %d plus %d?", index, a, b)
	answer := strconv.Itoa(a + b)

	peerCount := 2 + rng.Intn(3)
	allWrong := rng.Intn(5) == 0
	correct := -1
	if !allWrong {
		correct = rng.Intn(peerCount)
	}

	ids := make([]string, peerCount)
	answers := make([]string, peerCount)
	for i := range peerCount {
		ids[i] = "A" + strconv.Itoa(i+1)
		if i == correct {
			answers[i] = answer
		} else {
			answers[i] = strconv.Itoa(a + b + 1 + rng.Intn(9))
		}
	}
	peers := Submissions(ids, answers)

	best := NonePhrase
	if !allWrong {
		best = ids[correct]
	}

	// Critique round: one completion per peer id plus the none claim, in
	// shuffled order.
	choices := append(append([]string(nil), ids...), NonePhrase)
	rng.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
	critique := make([]string, len(choices))
	bestCritique := 0
	for i, c := range choices {
		critique[i] = CritiqueCompletion(c)
		if c == best {
			bestCritique = i
		}
	}

	// Final round: critics mostly back the best choice; the distractors
	// follow a wrong peer and misquote the question.
	votes := []string{best, best, ids[rng.Intn(peerCount)]}
	wrong := ids[(max(correct, 0)+1)%peerCount]
	finals := []string{
		FinalCompletion(wrong, "what is the meaning of life?", strconv.Itoa(a+b+10)),
		FinalCompletion(wrong, question+" roughly", strconv.Itoa(a+b+20)),
	}
	bestFinal := rng.Intn(len(finals) + 1)
	finals = append(finals[:bestFinal], append([]string{FinalCompletion(best, question, answer)}, finals[bestFinal:]...)...)

	return DebateCase{
		Question:     question,
		Answer:       answer,
		Peers:        peers,
		AllWrong:     allWrong,
		Critique:     domain.NewBatch(DebatePrompt(question, peers), critique, answer),
		BestCritique: bestCritique,
		Final:        domain.NewBatch(DebatePrompt(question, peers, votes...), finals, answer),
		BestFinal:    bestFinal,
	}
}
