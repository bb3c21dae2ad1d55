// Package propensity trains a classifier that predicts which customers will
// adopt the investment product in the months right after the early
// observation window. Training only sees early-window behavior: customers
// who adopted during that window are excluded from fitting and evaluation
// (their label would leak the outcome) but still receive a score.
package propensity

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/features"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// OutcomeWindow is how many months past the early window a customer has to
// adopt for the training label to be positive.
const OutcomeWindow = 3

// Model is the contract both classifier implementations satisfy, so the
// algorithm can be swapped without touching the stage.
type Model interface {
	Fit(X *mat.Dense, y []float64) error
	PredictProba(X *mat.Dense) []float64
	Name() string
}

// Scorer runs the propensity stage.
type Scorer struct {
	cfg      config.Propensity
	seed     int64
	rng      *rand.Rand
	logger   *slog.Logger
	progress func(done, total int)
}

// NewScorer creates a Scorer with its own random stream seeded from seed.
func NewScorer(cfg config.Propensity, seed int64) *Scorer {
	return &Scorer{
		cfg:    cfg,
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
		logger: slog.Default().With("component", "propensity"),
	}
}

// OnProgress registers a callback invoked after each boosting round.
func (s *Scorer) OnProgress(fn func(done, total int)) {
	s.progress = fn
}

// Score fits the configured model on eligible customers and scores every
// customer, returning the scores plus holdout metrics.
func (s *Scorer) Score(ctx context.Context, feats []model.CustomerFeatures) ([]model.PropensityScore, model.PropensityMetrics, error) {
	if len(feats) == 0 {
		return nil, model.PropensityMetrics{}, fmt.Errorf("%w: no feature rows", common.ErrEmptyDataset)
	}

	design, err := newDesign(feats)
	if err != nil {
		return nil, model.PropensityMetrics{}, err
	}

	eligible, labels := eligibleRows(feats)
	positives := 0
	for _, y := range labels {
		if y == 1 {
			positives++
		}
	}
	if positives == 0 || positives == len(labels) {
		return nil, model.PropensityMetrics{}, fmt.Errorf(
			"%w: %d positives among %d eligible customers",
			common.ErrDegenerateInput, positives, len(labels))
	}

	trainIdx, testIdx := s.stratifiedSplit(labels)

	select {
	case <-ctx.Done():
		return nil, model.PropensityMetrics{}, ctx.Err()
	default:
	}

	clf := s.newModel()
	Xtrain := design.rows(indexAt(eligible, trainIdx))
	ytrain := valuesAt(labels, trainIdx)

	if err := clf.Fit(Xtrain, ytrain); err != nil {
		if clf.Name() == "logistic" {
			return nil, model.PropensityMetrics{}, fmt.Errorf("fitting propensity model: %w", err)
		}
		// The boosted model refused the data; fall back to the simpler
		// classifier with the same contract.
		s.logger.Warn("gbm fit failed, falling back to logistic",
			"error", err)
		clf = newLogistic(s.cfg)
		if err := clf.Fit(Xtrain, ytrain); err != nil {
			return nil, model.PropensityMetrics{}, fmt.Errorf("fitting fallback model: %w", err)
		}
	}

	probsTest := clf.PredictProba(design.rows(indexAt(eligible, testIdx)))
	ytest := valuesAt(labels, testIdx)

	metrics := model.PropensityMetrics{
		Algorithm: clf.Name(),
		AUC:       AUC(ytest, probsTest),
		KS:        KS(ytest, probsTest),
		Recall10:  RecallAtFraction(ytest, probsTest, 0.10),
		Recall20:  RecallAtFraction(ytest, probsTest, 0.20),
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
		Positives: positives,
	}

	s.logger.Info("propensity model evaluated",
		"algorithm", metrics.Algorithm,
		"auc", fmt.Sprintf("%.3f", metrics.AUC),
		"ks", fmt.Sprintf("%.3f", metrics.KS),
		"recall_at_10", fmt.Sprintf("%.3f", metrics.Recall10),
		"recall_at_20", fmt.Sprintf("%.3f", metrics.Recall20))

	// Score the full base, early adopters included: campaign targeting
	// needs a number for everyone.
	all := clf.PredictProba(design.matrix())
	scores := make([]model.PropensityScore, len(feats))
	for i, f := range feats {
		scores[i] = model.PropensityScore{CustomerID: f.CustomerID, Probability: all[i]}
	}

	return scores, metrics, nil
}

func (s *Scorer) newModel() Model {
	if s.cfg.Algorithm == "logistic" {
		return newLogistic(s.cfg)
	}
	g := newGBM(s.cfg, s.seed)
	g.progress = s.progress
	return g
}

// eligibleRows selects customers whose label does not leak the early
// window, with the adoption-within-OutcomeWindow label for each.
func eligibleRows(feats []model.CustomerFeatures) (idx []int, labels []float64) {
	for i, f := range feats {
		if f.FirstAdoptMonth >= 1 && f.FirstAdoptMonth <= features.EarlyWindow {
			continue
		}
		y := 0.0
		if f.FirstAdoptMonth > features.EarlyWindow &&
			f.FirstAdoptMonth <= features.EarlyWindow+OutcomeWindow {
			y = 1.0
		}
		idx = append(idx, i)
		labels = append(labels, y)
	}
	return idx, labels
}

// stratifiedSplit shuffles positives and negatives separately and carves
// the configured test fraction out of each, so both sides keep the base
// rate.
func (s *Scorer) stratifiedSplit(labels []float64) (train, test []int) {
	var pos, neg []int
	for i, y := range labels {
		if y == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	s.rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	s.rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })

	cut := func(idx []int) (tr, te []int) {
		nTest := int(float64(len(idx)) * s.cfg.TestFraction)
		if nTest < 1 && len(idx) > 1 {
			nTest = 1
		}
		return idx[nTest:], idx[:nTest]
	}

	posTrain, posTest := cut(pos)
	negTrain, negTest := cut(neg)

	train = append(append([]int{}, posTrain...), negTrain...)
	test = append(append([]int{}, posTest...), negTest...)
	return train, test
}

func indexAt(base, sel []int) []int {
	out := make([]int, len(sel))
	for i, s := range sel {
		out[i] = base[s]
	}
	return out
}

func valuesAt(vals []float64, sel []int) []float64 {
	out := make([]float64, len(sel))
	for i, s := range sel {
		out[i] = vals[s]
	}
	return out
}
