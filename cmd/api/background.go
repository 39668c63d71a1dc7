package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reconcileTimeout = 2 * time.Minute

// cronLogger adapts the sugared logger to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// startReconciler schedules the ledger repair jobs on RECONCILE_SCHEDULE.
func (app *application) startReconciler() (*cron.Cron, error) {
	logger := cronLogger{l: app.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(app.config.reconcile.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()
		app.reconcile(ctx)
	}); err != nil {
		return nil, err
	}

	c.Start()
	app.logger.Infow("reconciler scheduled", "schedule", app.config.reconcile.schedule)
	return c, nil
}

// reconcile re-creates missing grants, removes ledger rows whose resource is
// gone and prunes push tokens that have not been refreshed in a while.
func (app *application) reconcile(ctx context.Context) {
	repaired, err := app.service.RepairGrants(ctx, app.config.reconcile.batch)
	if err != nil {
		app.logger.Errorw("repair grants failed", "error", err)
	}

	swept, err := app.service.SweepOrphans(ctx)
	if err != nil {
		app.logger.Errorw("sweep orphaned access rows failed", "error", err)
	}

	pruned, err := app.store.PushTokens.PruneStale(ctx, app.config.reconcile.tokenMaxAge)
	if err != nil {
		app.logger.Errorw("prune push tokens failed", "error", err)
	}

	app.logger.Infow("reconcile finished",
		"grants_repaired", repaired,
		"orphans_swept", swept,
		"push_tokens_pruned", pruned,
	)
}
