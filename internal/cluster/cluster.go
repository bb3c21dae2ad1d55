// Package cluster segments customers with K-Means over standardized
// behavioral features and attaches business labels to the resulting
// clusters. Fitting is deterministic for a given seed.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// Clusterer fits the customer segmentation.
type Clusterer struct {
	cfg    config.Cluster
	rng    *rand.Rand
	logger *slog.Logger
}

// New creates a Clusterer with its own random stream seeded from seed.
func New(cfg config.Cluster, seed int64) *Clusterer {
	return &Clusterer{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: slog.Default().With("component", "cluster"),
	}
}

// Fit standardizes the cluster features, runs K-Means with restarts and
// returns assignments, centroids, silhouette and labeled profiles.
func (c *Clusterer) Fit(ctx context.Context, features []model.CustomerFeatures) (*model.ClusterResult, error) {
	n := len(features)
	if n == 0 {
		return nil, fmt.Errorf("%w: no feature rows", common.ErrEmptyDataset)
	}
	if n < c.cfg.K {
		return nil, fmt.Errorf("%w: %d customers for k=%d", common.ErrDegenerateInput, n, c.cfg.K)
	}

	X := mat.NewDense(n, len(model.ClusterFeatureNames()), nil)
	for i, f := range features {
		X.SetRow(i, f.ClusterFeatureVector())
	}
	Xs := standardize(X)

	c.logger.Info("fitting k-means",
		"customers", n,
		"k", c.cfg.K,
		"n_init", c.cfg.NInit)

	var best *fit
	for run := 0; run < c.cfg.NInit; run++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		f := c.lloyd(Xs)
		if best == nil || f.wss < best.wss {
			best = f
		}
	}

	sil, err := silhouette(Xs, best.assignments, c.cfg.K)
	if err != nil {
		return nil, err
	}

	assignments := make(map[int]int, n)
	for i, f := range features {
		assignments[f.CustomerID] = best.assignments[i]
	}

	profiles := buildProfiles(features, best.assignments, c.cfg.K)

	c.logger.Info("k-means fitted",
		"silhouette", fmt.Sprintf("%.3f", sil),
		"wss", fmt.Sprintf("%.1f", best.wss))

	return &model.ClusterResult{
		Assignments: assignments,
		Centroids:   best.centroids,
		Profiles:    profiles,
		Silhouette:  sil,
		WithinSS:    best.wss,
		K:           c.cfg.K,
	}, nil
}

// Apply writes the fitted assignment and its business label onto each
// feature row.
func Apply(features []model.CustomerFeatures, result *model.ClusterResult) error {
	names := make(map[int]string, len(result.Profiles))
	for _, p := range result.Profiles {
		names[p.Cluster] = p.Name
	}

	for i := range features {
		cl, ok := result.Assignments[features[i].CustomerID]
		if !ok {
			return fmt.Errorf("%w: customer %d has no cluster assignment",
				common.ErrDegenerateInput, features[i].CustomerID)
		}
		features[i].Cluster = cl
		features[i].ClusterName = names[cl]
	}
	return nil
}
