package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/store"
)

// MirrorProcessorConfig holds configuration for the mirror processor
type MirrorProcessorConfig struct {
	// ResyncInterval is how often every owner is mirrored again (default: 15m)
	ResyncInterval time.Duration

	// Locale selects the export header language (default: "vi-VN")
	Locale string

	// Location is the zone creation dates are written in (default: UTC)
	Location *time.Location
}

func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{
		ResyncInterval: 15 * time.Minute,
		Locale:         "vi-VN",
	}
}

// MirrorProcessor copies owners' transactions into export sinks: on demand
// when an event arrives, and periodically for every owner.
type MirrorProcessor struct {
	store  store.TransactionStore
	owners store.OwnerLister
	sinks  []export.Sink
	config MirrorProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMirrorProcessor creates a processor. owners may be nil, which disables
// the periodic resync.
func NewMirrorProcessor(s store.TransactionStore, owners store.OwnerLister, config MirrorProcessorConfig, sinks ...export.Sink) *MirrorProcessor {
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = DefaultMirrorProcessorConfig().ResyncInterval
	}
	return &MirrorProcessor{
		store:  s,
		owners: owners,
		sinks:  sinks,
		config: config,
	}
}

// Mirror rewrites every sink with owner's current transactions, newest first.
func (p *MirrorProcessor) Mirror(ctx context.Context, owner string) error {
	if owner == "" {
		return errors.New("mirror: empty owner")
	}
	txs, err := p.store.ListByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	table, err := export.Build(core.SortNewestFirst(txs), p.config.Locale, p.config.Location)
	if errors.Is(err, export.ErrNothingToExport) {
		table = export.Empty(p.config.Locale)
	} else if err != nil {
		return fmt.Errorf("build export: %w", err)
	}

	if err := export.WriteAll(ctx, owner, table, p.sinks...); err != nil {
		return fmt.Errorf("mirror %s: %w", owner, err)
	}
	slog.InfoContext(ctx, "Mirrored transactions", "owner", owner, "rows", len(table.Rows), "sinks", len(p.sinks))
	return nil
}

// ResyncAll mirrors every owner the store knows about and joins the failures.
func (p *MirrorProcessor) ResyncAll(ctx context.Context) error {
	if p.owners == nil {
		return nil
	}
	owners, err := p.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	var errs []error
	for _, owner := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.Mirror(ctx, owner); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start begins the resync loop. Returns an error if already running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mirror processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror processor started",
		"resync_interval", p.config.ResyncInterval,
		"sinks", len(p.sinks))
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MirrorProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.ResyncInterval)
	defer ticker.Stop()

	p.resync(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.resync(ctx)
		}
	}
}

func (p *MirrorProcessor) resync(ctx context.Context) {
	if err := p.ResyncAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Resync failed", "error", err)
	}
}
