// Package lifecycle owns the boot and teardown order of a store runtime:
// ledger first, store second, and on shutdown the reverse, finishing
// with the ledger balance check that surfaces leaks.
package lifecycle

import (
	"fmt"
	"log/slog"

	"github.com/roach88/stash/internal/alloc"
	"github.com/roach88/stash/internal/store"
)

// Runtime bundles one ledger and the store drawing from it. Exactly one
// Boot/Shutdown pair per runtime; Shutdown is safe to repeat but a
// runtime is not reusable afterwards.
type Runtime struct {
	led    *alloc.Ledger
	store  *store.Store
	logger *slog.Logger
}

type config struct {
	limit    int64
	limitSet bool
	logger   *slog.Logger
}

// Option configures Boot.
type Option func(*config)

// WithLimit caps the ledger's live units. A zero limit admits nothing,
// so Boot itself fails; that is deliberate, it makes the init-time
// allocation failure path reachable.
func WithLimit(n int64) Option {
	return func(c *config) {
		c.limit = n
		c.limitSet = true
	}
}

// WithLogger routes the shutdown leak diagnostic. Defaults to
// slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Boot builds the ledger and draws the store's table unit. It fails only
// when that first draw is refused.
func Boot(opts ...Option) (*Runtime, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var ledOpts []alloc.Option
	if cfg.limitSet {
		ledOpts = append(ledOpts, alloc.WithLimit(cfg.limit))
	}
	led := alloc.NewLedger(ledOpts...)

	st, err := store.New(led)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	return &Runtime{led: led, store: st, logger: cfg.logger}, nil
}

// Store returns the runtime's variable store.
func (r *Runtime) Store() *store.Store { return r.store }

// Ledger returns the runtime's allocation ledger.
func (r *Runtime) Ledger() *alloc.Ledger { return r.led }

// Shutdown clears and closes the store, then checks the ledger. Units
// still live at that point were drawn by callers and never released;
// the imbalance is logged, not returned, because teardown must always
// complete.
func (r *Runtime) Shutdown() {
	r.store.Close()
	if live := r.led.Live(); live != 0 {
		r.logger.Warn("allocation ledger unbalanced at shutdown",
			"live_units", live,
			"lifetime_units", r.led.Grabbed())
	}
}
