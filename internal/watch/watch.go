// Package watch runs one status check pass: load the history, check every
// receipt number, notify about changes and append the results to the history.
package watch

import (
	"context"

	"github.com/caarlos0/log"
	"go.uber.org/multierr"

	"github.com/Norgate-AV/casewatch/internal/cache"
	"github.com/Norgate-AV/casewatch/internal/tracker"
)

// History is the persisted status log
type History interface {
	Path() string
	Load() (cache.Statuses, error)
	Append(entries []cache.Entry) error
}

// Evaluator checks receipt numbers against cached statuses
type Evaluator interface {
	Evaluate(ctx context.Context, receipts []string, cached cache.Statuses) ([]tracker.Update, error)
}

// Notifier delivers change notifications
type Notifier interface {
	Notify(ctx context.Context, updates []tracker.Update) error
}

// Runner wires the components of a run together. History and Notifier are optional.
type Runner struct {
	Evaluator Evaluator
	History   History
	Notifier  Notifier
	Log       *log.Logger

	// FailFast abandons the run at the first lookup or notification
	// error, before anything is sent or written.
	FailFast bool
}

// Run performs one pass over receipts and returns the updates it produced.
//
// History problems never fail the run: an unreadable history is treated as
// empty and a failed append is only logged. Lookup and notification errors
// are collected and returned after the history has been written.
func (r *Runner) Run(ctx context.Context, receipts []string) ([]tracker.Update, error) {
	cached := make(cache.Statuses)

	if r.History != nil {
		loaded, err := r.History.Load()
		if err != nil {
			r.Log.WithField("file", r.History.Path()).WithError(err).Error("failed to read history file, assuming empty cache")
		} else {
			cached = loaded
		}
	}

	updates, errs := r.Evaluator.Evaluate(ctx, receipts, cached)
	if errs != nil && r.FailFast {
		return updates, errs
	}

	if r.Notifier != nil {
		if err := r.Notifier.Notify(ctx, tracker.Changed(updates)); err != nil {
			errs = multierr.Append(errs, err)

			if r.FailFast {
				return updates, errs
			}
		}
	}

	if r.History != nil {
		if err := r.History.Append(tracker.Entries(updates)); err != nil {
			r.Log.WithField("file", r.History.Path()).WithError(err).Error("error writing to history file, history not created or appended to")
		}
	}

	return updates, errs
}
