// Package pipeline runs the analysis stages in order and records every
// execution in the run ledger. Stages communicate exclusively through the
// CSV artifacts on disk, so any stage can be re-run on its own as long as
// its upstream artifacts exist.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garimpo-ds/garimpo/internal/blend"
	"github.com/garimpo-ds/garimpo/internal/cluster"
	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/dataset"
	"github.com/garimpo-ds/garimpo/internal/features"
	"github.com/garimpo-ds/garimpo/internal/markov"
	"github.com/garimpo-ds/garimpo/internal/model"
	"github.com/garimpo-ds/garimpo/internal/propensity"
	"github.com/garimpo-ds/garimpo/internal/report"
	"github.com/garimpo-ds/garimpo/internal/service"
	"github.com/garimpo-ds/garimpo/internal/survival"
	"github.com/garimpo-ds/garimpo/internal/synth"
)

// Stage names in execution order.
const (
	StageGenerate   = "generate"
	StageFeatures   = "features"
	StageCluster    = "cluster"
	StageMarkov     = "markov"
	StagePropensity = "propensity"
	StageSurvival   = "survival"
	StageScore      = "score"
)

// Stages returns the pipeline stages in execution order.
func Stages() []string {
	return []string{
		StageGenerate,
		StageFeatures,
		StageCluster,
		StageMarkov,
		StagePropensity,
		StageSurvival,
		StageScore,
	}
}

// stageResult is what a stage reports back to the ledger.
type stageResult struct {
	detail map[string]any
	rows   int
}

// Runner wires the stages to the artifact layout and the ledger.
type Runner struct {
	ledger     service.Ledger
	logger     *slog.Logger
	onStage    func(stage string)
	onProgress func(stage string, done, total int)
	cfg        config.Pipeline
}

// New creates a Runner.
func New(cfg config.Pipeline, ledger service.Ledger) *Runner {
	return &Runner{
		cfg:    cfg,
		ledger: ledger,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// OnStageDone registers a callback invoked after each completed stage.
func (r *Runner) OnStageDone(fn func(stage string)) {
	r.onStage = fn
}

// OnProgress registers a callback for within-stage progress. Only the
// stages with a long inner loop emit updates.
func (r *Runner) OnProgress(fn func(stage string, done, total int)) {
	r.onProgress = fn
}

// stageProgress adapts the runner-level callback for one stage.
func (r *Runner) stageProgress(stage string) func(done, total int) {
	if r.onProgress == nil {
		return nil
	}
	return func(done, total int) {
		r.onProgress(stage, done, total)
	}
}

// Run executes the full pipeline under a single ledger run and returns the
// run id.
func (r *Runner) Run(ctx context.Context) (string, error) {
	return r.execute(ctx, Stages())
}

// RunStage executes one stage under its own ledger run.
func (r *Runner) RunStage(ctx context.Context, stage string) (string, error) {
	if _, err := r.stageFunc(stage); err != nil {
		return "", err
	}
	return r.execute(ctx, []string{stage})
}

func (r *Runner) execute(ctx context.Context, stages []string) (string, error) {
	if err := r.cfg.Paths.EnsureDirs(); err != nil {
		return "", err
	}

	snapshot, err := json.Marshal(r.cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config snapshot: %w", err)
	}

	run := &model.Run{
		ID:        uuid.New().String(),
		Seed:      r.cfg.Seed,
		Customers: r.cfg.Generator.Customers,
		Months:    r.cfg.Generator.Months,
		Config:    string(snapshot),
	}
	if err := r.ledger.StartRun(ctx, run); err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}

	// Ledger bookkeeping must land even when the work itself was
	// cancelled, so the closing writes use an uncancelable context.
	bookCtx := context.WithoutCancel(ctx)

	for _, stage := range stages {
		if err := r.runStage(ctx, bookCtx, run.ID, stage); err != nil {
			if finishErr := r.ledger.FinishRun(bookCtx, run.ID, model.RunFailed, err.Error()); finishErr != nil {
				r.logger.Error("failed to record run failure", "error", finishErr)
			}
			return run.ID, err
		}
		if r.onStage != nil {
			r.onStage(stage)
		}
	}

	if err := r.ledger.FinishRun(bookCtx, run.ID, model.RunCompleted, ""); err != nil {
		return run.ID, fmt.Errorf("recording run completion: %w", err)
	}
	return run.ID, nil
}

func (r *Runner) runStage(ctx, bookCtx context.Context, runID, stage string) error {
	fn, err := r.stageFunc(stage)
	if err != nil {
		return err
	}

	if err := r.ledger.StartStage(ctx, runID, stage); err != nil {
		return fmt.Errorf("recording stage start: %w", err)
	}
	r.logger.Info("stage started", "run_id", runID, "stage", stage)
	start := time.Now()

	res, stageErr := fn(ctx)
	if stageErr != nil {
		if finishErr := r.ledger.FinishStage(bookCtx, runID, stage, model.RunFailed, 0, ""); finishErr != nil {
			r.logger.Error("failed to record stage failure", "error", finishErr)
		}
		return fmt.Errorf("%s: %w", stage, stageErr)
	}

	detail := ""
	if res.detail != nil {
		if raw, marshalErr := json.Marshal(res.detail); marshalErr == nil {
			detail = string(raw)
		}
	}
	if err := r.ledger.FinishStage(bookCtx, runID, stage, model.RunCompleted, res.rows, detail); err != nil {
		return fmt.Errorf("recording stage completion: %w", err)
	}

	r.logger.Info("stage completed",
		"run_id", runID,
		"stage", stage,
		"rows", res.rows,
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *Runner) stageFunc(stage string) (func(context.Context) (stageResult, error), error) {
	switch stage {
	case StageGenerate:
		return r.runGenerate, nil
	case StageFeatures:
		return r.runFeatures, nil
	case StageCluster:
		return r.runCluster, nil
	case StageMarkov:
		return r.runMarkov, nil
	case StagePropensity:
		return r.runPropensity, nil
	case StageSurvival:
		return r.runSurvival, nil
	case StageScore:
		return r.runScore, nil
	default:
		return nil, fmt.Errorf("%w: unknown stage %q", common.ErrInvalidConfig, stage)
	}
}

func (r *Runner) runGenerate(ctx context.Context) (stageResult, error) {
	gen := synth.New(r.cfg.Generator, r.cfg.Seed)
	if fn := r.stageProgress(StageGenerate); fn != nil {
		gen.OnProgress(fn)
	}
	rows, err := gen.Panel(ctx)
	if err != nil {
		return stageResult{}, err
	}
	if err := dataset.WritePanel(r.cfg.Paths.Panel(), rows); err != nil {
		return stageResult{}, err
	}

	adopted := 0
	for _, row := range rows {
		if row.Month == 1 && row.EventInvestment == 1 {
			adopted++
		}
	}
	return stageResult{
		rows: len(rows),
		detail: map[string]any{
			"customers":     r.cfg.Generator.Customers,
			"months":        r.cfg.Generator.Months,
			"seed":          r.cfg.Seed,
			"adoption_rate": float64(adopted) / float64(r.cfg.Generator.Customers),
		},
	}, nil
}

func (r *Runner) runFeatures(_ context.Context) (stageResult, error) {
	rows, err := dataset.ReadPanel(r.cfg.Paths.Panel())
	if err != nil {
		return stageResult{}, err
	}
	feats, err := features.Build(rows)
	if err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteFeatures(r.cfg.Paths.Features(), feats); err != nil {
		return stageResult{}, err
	}
	return stageResult{
		rows:   len(feats),
		detail: map[string]any{"panel_rows": len(rows)},
	}, nil
}

func (r *Runner) runCluster(ctx context.Context) (stageResult, error) {
	feats, err := dataset.ReadFeatures(r.cfg.Paths.Features())
	if err != nil {
		return stageResult{}, err
	}

	clusterer := cluster.New(r.cfg.Cluster, r.cfg.Seed)
	result, err := clusterer.Fit(ctx, feats)
	if err != nil {
		return stageResult{}, err
	}
	if err := cluster.Apply(feats, result); err != nil {
		return stageResult{}, err
	}

	paths := r.cfg.Paths
	if err := dataset.WriteClusteredFeatures(paths.ClusteredFeatures(), feats); err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteClusterSummary(paths.ClusterSummary(), result.Profiles); err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteProfileCards(paths.ProfileCards(), result.Profiles); err != nil {
		return stageResult{}, err
	}
	if err := report.WriteClusterCards(paths.ProfileCardsMarkdown(), result); err != nil {
		return stageResult{}, err
	}

	sizes := make([]int, result.K)
	for k := 0; k < result.K; k++ {
		sizes[k] = result.Size(k)
	}
	return stageResult{
		rows: len(feats),
		detail: map[string]any{
			"k":          result.K,
			"silhouette": result.Silhouette,
			"wss":        result.WithinSS,
			"sizes":      sizes,
		},
	}, nil
}

func (r *Runner) runMarkov(_ context.Context) (stageResult, error) {
	rows, err := dataset.ReadPanel(r.cfg.Paths.Panel())
	if err != nil {
		return stageResult{}, err
	}

	states, thresholds, err := markov.States(rows)
	if err != nil {
		return stageResult{}, err
	}

	analyzer := markov.New(r.cfg.Markov)
	counts, matrix, err := analyzer.Transitions(states)
	if err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteTransitionCounts(r.cfg.Paths.TransitionCounts(), counts); err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteTransitionMatrix(r.cfg.Paths.TransitionMatrix(), matrix); err != nil {
		return stageResult{}, err
	}

	summaries := markov.Summarize(states, matrix)
	if err := dataset.WriteStates(r.cfg.Paths.States(), summaries); err != nil {
		return stageResult{}, err
	}

	dist, iterations, err := analyzer.Stationary(matrix)
	if err != nil && !errors.Is(err, common.ErrNotConverged) {
		return stageResult{}, err
	}
	if errors.Is(err, common.ErrNotConverged) {
		r.logger.Warn("stationary distribution did not converge, keeping last iterate")
	}
	if err := dataset.WriteStationary(r.cfg.Paths.Stationary(), dist); err != nil {
		return stageResult{}, err
	}

	stateCounts := make(map[string]int, model.NumStates)
	for _, s := range states {
		stateCounts[s.State.String()]++
	}
	return stageResult{
		rows: len(summaries),
		detail: map[string]any{
			"low_max":      thresholds.LowMax,
			"medium_max":   thresholds.MediumMax,
			"state_counts": stateCounts,
			"stationary":   dist,
			"iterations":   iterations,
		},
	}, nil
}

func (r *Runner) runPropensity(ctx context.Context) (stageResult, error) {
	feats, err := dataset.ReadClusteredFeatures(r.cfg.Paths.ClusteredFeatures())
	if err != nil {
		return stageResult{}, err
	}

	scorer := propensity.NewScorer(r.cfg.Propensity, r.cfg.Seed)
	if fn := r.stageProgress(StagePropensity); fn != nil {
		scorer.OnProgress(fn)
	}
	scores, metrics, err := scorer.Score(ctx, feats)
	if err != nil {
		return stageResult{}, err
	}

	if err := dataset.WritePropensityScores(r.cfg.Paths.PropensityScores(), scores); err != nil {
		return stageResult{}, err
	}
	if err := dataset.WritePropensityMetrics(r.cfg.Paths.PropensityMetrics(), metrics); err != nil {
		return stageResult{}, err
	}

	return stageResult{
		rows: len(scores),
		detail: map[string]any{
			"algorithm":    metrics.Algorithm,
			"auc":          metrics.AUC,
			"ks":           metrics.KS,
			"recall_at_10": metrics.Recall10,
			"recall_at_20": metrics.Recall20,
			"positives":    metrics.Positives,
			"train_rows":   metrics.TrainRows,
			"test_rows":    metrics.TestRows,
		},
	}, nil
}

func (r *Runner) runSurvival(ctx context.Context) (stageResult, error) {
	feats, err := dataset.ReadClusteredFeatures(r.cfg.Paths.ClusteredFeatures())
	if err != nil {
		return stageResult{}, err
	}

	fitter := survival.New(r.cfg.Survival)
	if fn := r.stageProgress(StageSurvival); fn != nil {
		fitter.OnProgress(fn)
	}
	res, err := fitter.Fit(ctx, feats)
	if err != nil {
		return stageResult{}, err
	}
	if !res.Converged {
		r.logger.Warn("cox fit did not converge, keeping last iterate", "iterations", res.Iterations)
	}

	paths := r.cfg.Paths
	if err := dataset.WriteSurvivalProbabilities(paths.SurvivalProbabilities(), res.Estimates); err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteSurvivalExpectedTime(paths.SurvivalExpectedTime(), res.Estimates); err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteCoxSummary(paths.CoxSummary(), res.Coefficients); err != nil {
		return stageResult{}, err
	}
	tables := []string{
		paths.SurvivalProbabilities(),
		paths.SurvivalExpectedTime(),
		paths.CoxSummary(),
	}
	if err := report.WriteSurvivalReport(paths.SurvivalReport(), res.Coefficients, res.Converged, tables); err != nil {
		return stageResult{}, err
	}

	events := 0
	for _, ft := range feats {
		if ft.AdoptedEver == 1 {
			events++
		}
	}
	return stageResult{
		rows: len(res.Estimates),
		detail: map[string]any{
			"converged":      res.Converged,
			"iterations":     res.Iterations,
			"log_likelihood": res.LogLik,
			"events":         events,
		},
	}, nil
}

func (r *Runner) runScore(_ context.Context) (stageResult, error) {
	paths := r.cfg.Paths

	feats, err := dataset.ReadClusteredFeatures(paths.ClusteredFeatures())
	if err != nil {
		return stageResult{}, err
	}
	props, err := dataset.ReadPropensityScores(paths.PropensityScores())
	if err != nil {
		return stageResult{}, err
	}
	ests, err := dataset.ReadSurvivalProbabilities(paths.SurvivalProbabilities())
	if err != nil {
		return stageResult{}, err
	}
	expected, err := dataset.ReadSurvivalExpectedTime(paths.SurvivalExpectedTime())
	if err != nil {
		return stageResult{}, err
	}
	for i := range ests {
		v, ok := expected[ests[i].CustomerID]
		if !ok {
			return stageResult{}, fmt.Errorf("%w: customer %d has no expected adoption time",
				common.ErrDegenerateInput, ests[i].CustomerID)
		}
		ests[i].ExpectedMonths = v
	}

	summaries, err := dataset.ReadStates(paths.States())
	if err != nil {
		return stageResult{}, err
	}
	downgrade := make(map[int]float64, len(summaries))
	for _, s := range summaries {
		downgrade[s.CustomerID] = s.DowngradeRisk
	}

	blender := blend.New(r.cfg.Blend)
	scores, err := blender.Score(feats, props, ests, downgrade)
	if err != nil {
		return stageResult{}, err
	}
	if err := dataset.WriteFinalScores(paths.FinalScores(), scores); err != nil {
		return stageResult{}, err
	}

	bands := make(map[model.PriorityBand]int, 3)
	for _, s := range scores {
		bands[s.Band]++
	}
	return stageResult{
		rows: len(scores),
		detail: map[string]any{
			"high":         bands[model.BandHigh],
			"medium":       bands[model.BandMedium],
			"low":          bands[model.BandLow],
			"w_propensity": r.cfg.Blend.WPropensity,
			"w_urgency":    r.cfg.Blend.WUrgency,
			"w_risk":       r.cfg.Blend.WRisk,
		},
	}, nil
}
