// Package checker runs one public IP check: load the cached address, look up
// the current one, and notify and re-cache when they differ.
package checker

import (
	"context"
	"time"

	"ipwatch/internal/cache"
	"ipwatch/internal/notify"
	"ipwatch/internal/types"

	"go.uber.org/zap"
)

// Resolver looks up the current public address
type Resolver interface {
	Lookup(ctx context.Context) (string, error)
}

// Options configures a Checker
type Options struct {
	// Name labels the network in notifications
	Name string

	// SkipSaveOnNotifyFailure leaves the cache untouched when the notification
	// fails, so the next run alerts again.
	SkipSaveOnNotifyFailure bool
}

// Checker runs single checks
type Checker struct {
	opts     Options
	store    cache.Store
	resolver Resolver
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// Result records what happened at each step of a check. Step errors are
// logged by Check and kept here for callers that want to inspect them.
type Result struct {
	Outcome    types.CheckOutcome
	PreviousIP string
	CurrentIP  string
	Change     *types.IPChange

	LoadErr   error
	LookupErr error
	NotifyErr error
	SaveErr   error

	Notified bool
	Saved    bool
}

// New creates a checker
func New(opts Options, store cache.Store, resolver Resolver, notifier notify.Notifier, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		opts:     opts,
		store:    store,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Check performs one check. It never fails as a whole: every step error is
// logged, recorded in the result and turned into the benign outcome for
// that step.
func (c *Checker) Check(ctx context.Context) *Result {
	res := &Result{}

	previous, err := c.store.Load(ctx)
	if err != nil {
		res.LoadErr = err
		c.logger.Warn("Failed to load cached IP, treating as absent", zap.Error(err))
		previous = ""
	}
	res.PreviousIP = previous
	c.logger.Info("Last IP", zap.String("ip", displayIP(previous)))

	current, err := c.resolver.Lookup(ctx)
	if err != nil {
		res.LookupErr = err
		res.Outcome = types.OutcomeLookupFailed
		c.logger.Warn("Could not determine current public IP, skip this check", zap.Error(err))
		return res
	}
	res.CurrentIP = current
	c.logger.Info("Current IP", zap.String("ip", current))

	if current == previous {
		res.Outcome = types.OutcomeUnchanged
		c.logger.Info("IP no change")
		return res
	}

	res.Outcome = types.OutcomeChanged
	res.Change = types.NewIPChange(c.opts.Name, previous, current, c.now())

	c.logger.Info("IP change detected",
		zap.String("old_ip", displayIP(previous)),
		zap.String("new_ip", current),
		zap.String("version", string(res.Change.Version)),
		zap.String("action", string(res.Change.Action)))

	if err := c.notifier.NotifyIPChange(ctx, res.Change); err != nil {
		res.NotifyErr = err
		c.logger.Error("Failed to send notification", zap.Error(err))
	} else {
		res.Notified = true
	}

	if res.NotifyErr != nil && c.opts.SkipSaveOnNotifyFailure {
		c.logger.Warn("Keeping cached IP so the next run notifies again")
		return res
	}

	if err := c.store.Save(ctx, current); err != nil {
		res.SaveErr = err
		c.logger.Error("Failed to save cached IP", zap.Error(err))
	} else {
		res.Saved = true
	}

	return res
}

func displayIP(ip string) string {
	if ip == "" {
		return "none"
	}
	return ip
}
