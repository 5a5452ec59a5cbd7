package warden

import (
	"errors"
	"fmt"

	"github.com/wardenhq/warden-go/internal/mask"
	"go.uber.org/zap"
)

// Builder defines a public type used by warden APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	sink   Sink
	diag   *zap.Logger

	built bool
}

// New returns a Builder seeded with defaults. The zero configuration runs in
// network mode and requires transport settings; set EmitEvents or install a
// sink for a fully local pipeline.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSink installs an explicit delivery sink, overriding the mode selection
// (emitter vs transport) derived from the configuration.
func (b *Builder) WithSink(sink Sink) *Builder {
	b.sink = sink
	return b
}

// WithDiagnostics installs the local diagnostic logger used by the failure
// guard. Defaults to a no-op logger.
func (b *Builder) WithDiagnostics(diag *zap.Logger) *Builder {
	b.diag = diag
	return b
}

// Build validates the configuration, loads the sensitive-field registry, and
// assembles the pipeline. A malformed custom sensitive-fields document fails
// here with [ErrSensitiveConfig]; it is the only error class the pipeline
// ever surfaces to its host after this point.
func (b *Builder) Build() (*Logger, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := mask.LoadRegistry(cfg.Sensitive.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSensitiveConfig, err)
	}

	stats := NewMetrics(cfg.Metrics)
	guard := newFailureGuard(b.diag, stats)

	var emitter *Emitter
	sink := b.sink
	if sink == nil {
		if cfg.EmitEvents {
			emitter = NewEmitter()
			sink = NewEmitterSink(emitter)
		} else {
			sink, err = newTransportSink(cfg.Transport)
			if err != nil {
				return nil, err
			}
		}
	}

	logger := &Logger{
		cfg:     cfg,
		masker:  mask.NewMasker(registry),
		disp:    newDispatcher(cfg.Audit, sink, guard, stats),
		emitter: emitter,
		guard:   guard,
		stats:   stats,
	}

	b.built = true

	return logger, nil
}
