package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-tally/infrastructure/middleware"
	"github.com/ahrav/go-tally/infrastructure/nodestate"
	"github.com/ahrav/go-tally/infrastructure/observer"
	"github.com/ahrav/go-tally/internal/application"
	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

type scoreOptions struct {
	round       string
	input       string
	config      string
	nodeKey     string
	natsURL     string
	prefix      string
	samples     string
	metrics     bool
	timeout     time.Duration
	selector    string
	probability float64
}

// componentResult is one component's values in the command output.
type componentResult struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// scoreResult is the JSON document printed by the score command.
type scoreResult struct {
	Round      domain.Round       `json:"round"`
	Node       string             `json:"node"`
	Components []componentResult  `json:"components,omitempty"`
	Total      []float64          `json:"total,omitempty"`
	Error      string             `json:"error,omitempty"`
	Update     *domain.NodeUpdate `json:"update,omitempty"`
}

func newScoreCmd() *cobra.Command {
	opts := scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a batch read from JSON and publish the result",
		Long: `Score reads a batch {"prompt": [...], "completions": [[...]], "ground_truth": [...]}
from --input (or stdin with "-"), runs the round's reward components,
publishes the outcome to the node's state and prints the components and the
published update as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.round, "round", "", "round to score: critique or final")
	flags.StringVar(&opts.input, "input", "-", "batch JSON file, - for stdin")
	flags.StringVar(&opts.config, "config", "", "reward configuration YAML (defaults when empty)")
	flags.StringVar(&opts.nodeKey, "node-key", hostname(), "identity of the scoring node")
	flags.StringVar(&opts.natsURL, "nats-url", "", "publish node updates to this NATS server")
	flags.StringVar(&opts.prefix, "subject-prefix", nodestate.DefaultSubjectPrefix, "NATS subject prefix")
	flags.StringVar(&opts.samples, "samples", "", "write sampled diagnostics under this directory")
	flags.Float64Var(&opts.probability, "sample-probability", -1, "override the configured sampling probability")
	flags.StringVar(&opts.selector, "selector", "", "override the configured selector: max, rewards_only or none")
	flags.BoolVar(&opts.metrics, "metrics", false, "print Prometheus metrics to stderr after scoring")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall scoring timeout")
	_ = cmd.MarkFlagRequired("round")

	return cmd
}

func runScore(ctx context.Context, stdin io.Reader, stdout io.Writer, opts scoreOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	round := domain.Round(opts.round)
	if !round.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRound, opts.round)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	batch, err := readBatch(stdin, opts.input)
	if err != nil {
		return err
	}

	node, closeNode, err := openNode(opts)
	if err != nil {
		return err
	}
	defer closeNode()

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(registry)

	sampleObservers := observer.Fanout{middleware.NewOTelSampleObserver(metrics)}
	if cfg.Sampling.Enabled {
		logger, err := observer.NewFileSampleLogger(cfg.Sampling.Dir,
			observer.WithProbability(cfg.Sampling.Probability),
			observer.WithRateLimit(cfg.Sampling.PerSecond, cfg.Sampling.Burst),
		)
		if err != nil {
			return err
		}
		sampleObservers = append(sampleObservers, logger)
	}

	agg, err := application.NewRewardAggregatorFromConfig(cfg, round, node, application.NewDefaultScorerRegistry(),
		application.WithObserver(sampleObservers),
		application.WithMetrics(metrics),
		application.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}

	result := scoreResult{Round: round, Node: node.Key()}
	before, _ := node.Latest()
	vector, err := agg.Score(ctx, batch)
	if err != nil {
		result.Error = err.Error()
	} else {
		for _, c := range vector.Components() {
			result.Components = append(result.Components, componentResult{Name: c.Name, Values: c.Values})
		}
		result.Total = vector.Total()
	}
	if after, ok := node.Latest(); ok && after.ID != before.ID {
		result.Update = &after
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if opts.metrics {
		return writeMetrics(os.Stderr, registry)
	}
	return nil
}

func loadConfig(opts scoreOptions) (application.RewardConfig, error) {
	cfg := application.DefaultRewardConfig()
	if opts.config != "" {
		var err error
		if cfg, err = application.LoadRewardConfig(opts.config); err != nil {
			return cfg, err
		}
	}
	if opts.selector != "" {
		cfg.Selector = domain.Selector(opts.selector)
	}
	if opts.samples != "" {
		cfg.Sampling.Enabled = true
		cfg.Sampling.Dir = opts.samples
	}
	if opts.probability >= 0 {
		cfg.Sampling.Probability = opts.probability
	}
	return cfg, nil
}

func readBatch(stdin io.Reader, path string) (domain.Batch, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return domain.Batch{}, ports.NewConfigError(path, err)
		}
		defer f.Close()
		r = f
	}

	var batch domain.Batch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return domain.Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	return batch, nil
}

// openNode returns the node state to publish to and a cleanup function.
func openNode(opts scoreOptions) (ports.NodeState, func(), error) {
	if opts.natsURL == "" {
		node, err := nodestate.NewMemoryNodeState(opts.nodeKey)
		return node, func() {}, err
	}

	conn, err := nats.Connect(opts.natsURL,
		nats.Name("tally-"+opts.nodeKey),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}
	node, err := nodestate.NewNATSNodeState(conn, opts.nodeKey, nodestate.WithSubjectPrefix(opts.prefix))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return node, func() { _ = conn.Drain() }, nil
}

func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
