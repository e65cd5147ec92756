package content

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/cms/pkg/fs"
)

// DefaultLockTimeout bounds how long a write waits for the content root lock.
const DefaultLockTimeout = 10 * time.Second

// Option configures an [Adapter].
type Option func(*Adapter)

// WithFS replaces the filesystem. Defaults to [fs.NewReal].
func WithFS(fsys fs.FS) Option {
	return func(a *Adapter) { a.fs = fsys }
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithObserver receives one callback per finished operation.
func WithObserver(obs Observer) Option {
	return func(a *Adapter) {
		if obs != nil {
			a.obs = obs
		}
	}
}

// WithLockTimeout sets how long writes wait for the lock.
// Non-positive values keep the default.
func WithLockTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.lockTimeout = d
		}
	}
}

// WithoutLocking disables the in-process mutex and the lock file.
// Guarded writes then race like plain read-then-write.
func WithoutLocking() Option {
	return func(a *Adapter) { a.locking = false }
}

// Outcome classifies a finished operation for observers.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeConflict Outcome = "conflict"
	OutcomeIOError  Outcome = "io_error"
	OutcomeInvalid  Outcome = "invalid"
)

// Observer is notified after each adapter operation.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveOp(op string, outcome Outcome, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveOp(string, Outcome, time.Duration) {}
