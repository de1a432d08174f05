// Package observer provides best-effort diagnostic sinks for reward
// samples.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.SampleObserver = (*FileSampleLogger)(nil)

// Defaults for the sample logger.
const (
	DefaultProbability = 0.01
	DefaultPerSecond   = 5
	DefaultBurst       = 10

	dirPrefix  = "multi_stage_gsm8k_samples_from_"
	fileSuffix = "_samps.txt"
	separator  = "--------------------"
)

// ErrEmptyRoot is returned when no sample directory is given.
var ErrEmptyRoot = errors.New("sample root directory cannot be empty")

// FileSampleLogger appends a random fraction of samples to one text file
// per component under <root>/multi_stage_gsm8k_samples_from_<host>/.
// Writes are additionally bounded by a token bucket. Every failure is
// logged at debug level and otherwise ignored.
type FileSampleLogger struct {
	root        string
	host        string
	probability float64
	limiter     *rate.Limiter
	roll        func() float64
	logger      *slog.Logger

	mu sync.Mutex
}

// Option configures a FileSampleLogger.
type Option func(*FileSampleLogger)

// WithProbability sets the chance that a sample is written.
func WithProbability(p float64) Option {
	return func(l *FileSampleLogger) { l.probability = p }
}

// WithRateLimit bounds sustained and burst writes.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(l *FileSampleLogger) { l.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithHostname overrides the host name used in the directory name.
func WithHostname(host string) Option {
	return func(l *FileSampleLogger) { l.host = host }
}

// WithRand sets the source of the sampling decision, which must return
// values in [0, 1).
func WithRand(roll func() float64) Option {
	return func(l *FileSampleLogger) { l.roll = roll }
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *FileSampleLogger) { l.logger = logger }
}

// NewFileSampleLogger creates a logger rooted at root.
func NewFileSampleLogger(root string, opts ...Option) (*FileSampleLogger, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	l := &FileSampleLogger{
		root:        root,
		host:        hostname(),
		probability: DefaultProbability,
		limiter:     rate.NewLimiter(DefaultPerSecond, DefaultBurst),
		roll:        rand.Float64,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.probability < 0 || l.probability > 1 {
		return nil, fmt.Errorf("sample probability %v outside [0, 1]", l.probability)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l, nil
}

func hostname() string {
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown"
}

// Dir returns the directory samples are written to.
func (l *FileSampleLogger) Dir() string {
	return filepath.Join(l.root, dirPrefix+l.host)
}

// Path returns the file holding samples of component.
func (l *FileSampleLogger) Path(component string) string {
	return filepath.Join(l.Dir(), component+fileSuffix)
}

// Observe writes the sample when it is drawn and the budget allows.
func (l *FileSampleLogger) Observe(ctx context.Context, sample ports.Sample) {
	if ctx.Err() != nil {
		return
	}
	if l.probability == 0 || l.roll() >= l.probability {
		return
	}
	if !l.limiter.Allow() {
		l.logger.Debug("sample dropped by rate limit", "component", sample.Component)
		return
	}
	if err := l.write(sample); err != nil {
		l.logger.Debug("failed to write reward sample",
			"component", sample.Component,
			"round", sample.Round,
			"err", err,
		)
	}
}

func (l *FileSampleLogger) write(sample ports.Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.Dir(), 0o755); err != nil {
		return fmt.Errorf("create sample dir: %w", err)
	}
	f, err := os.OpenFile(l.Path(sample.Component), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open sample file: %w", err)
	}
	if _, err := f.WriteString(FormatSample(sample)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write sample: %w", err)
	}
	return f.Close()
}

// FormatSample renders one record: a dashed separator, the prompt, the
// first response, each labelled detail and the reward.
func FormatSample(sample ports.Sample) string {
	var b strings.Builder
	b.WriteString(separator)
	b.WriteString("\nPrompt:\n")
	b.WriteString(sample.Prompt)
	b.WriteString("\n\nResponse:\n")
	b.WriteString(sample.Response)
	for _, f := range sample.Details() {
		b.WriteString("\n\n")
		b.WriteString(f.Label)
		b.WriteString(":\n")
		b.WriteString(f.Value)
	}
	b.WriteString("\n\nReward:\n")
	b.WriteString(strconv.FormatFloat(sample.Reward, 'f', -1, 64))
	b.WriteString("\n")
	return b.String()
}
