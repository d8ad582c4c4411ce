package app

import (
	"context"
	"fmt"

	"github.com/vk/queryplango/internal/answer"
	"github.com/vk/queryplango/internal/ctxlog"
	"github.com/vk/queryplango/internal/executor"
	"github.com/vk/queryplango/internal/graph"
	"github.com/vk/queryplango/internal/planfile"
	"github.com/vk/queryplango/internal/scheduler"
)

// Run executes the configured plan end to end: load, validate, schedule and
// answer. It blocks until the run finishes or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	nodes, err := planfile.Load(ctx, a.cfg.PlanPath)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	g, err := graph.Build(nodes)
	if err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "query_count", g.Len())

	if g.Len() == 0 {
		a.logger.Warn("No queries found in plan, execution not required.")
		return nil
	}

	if a.cfg.DryRun {
		return a.dryRun(g)
	}

	answerer, err := answer.New(a.cfg.Answerer)
	if err != nil {
		return err
	}
	policy, err := executor.ParsePolicy(a.cfg.FailPolicy)
	if err != nil {
		return err
	}

	exec := executor.New(g, answerer, executor.Options{
		Workers: a.cfg.Workers,
		Policy:  policy,
	})
	a.setExecutor(exec)

	if a.cfg.StatusPort > 0 {
		a.startStatusServer(a.cfg.StatusPort)
		defer a.closeStatusServer()
	}

	a.logger.Info("🚀 Starting plan execution.",
		"queries", g.Len(), "workers", a.cfg.Workers, "policy", string(policy))

	result, runErr := exec.Run(ctx)
	if result != nil {
		a.logSummary(result)
	}
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	a.logger.Info("🏁 Execution finished.", "duration", result.Duration().String())
	a.logger.Debug("App.Run method finished.")
	return nil
}

// dryRun prints the wave schedule without invoking any answerer.
func (a *App) dryRun(g *graph.Graph) error {
	waves, err := scheduler.All(g)
	if err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}

	a.logger.Info("Dry run: printing execution waves without answering.", "waves", len(waves))
	for i, wave := range waves {
		a.logger.Info("Wave scheduled.", "wave", i+1, "queries", wave)
	}
	return nil
}

// logSummary reports every query outcome plus run totals.
func (a *App) logSummary(result *executor.Result) {
	for _, id := range result.Done() {
		text, _ := result.Answer(id)
		a.logger.Info("Query answered.", "query_id", id, "answer", text)
	}
	for _, id := range result.Failed() {
		a.logger.Error("Query failed.", "query_id", id, "error", result.Nodes[id].Err)
	}
	for _, id := range result.Skipped() {
		a.logger.Warn("Query skipped.", "query_id", id, "reason", result.Nodes[id].Reason)
	}

	a.logger.Info("Run summary.",
		"run_id", result.RunID,
		"done", len(result.Done()),
		"failed", len(result.Failed()),
		"skipped", len(result.Skipped()),
		"duration", result.Duration().String(),
	)
}
