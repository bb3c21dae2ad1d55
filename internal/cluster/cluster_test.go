package cluster

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

func testClusterConfig(k int) config.Cluster {
	return config.Cluster{K: k, NInit: 10, MaxIter: 300}
}

// blob generates count customers scattered tightly around a base profile.
func blob(rng *rand.Rand, idStart, count int, age, income, balance, pix float64) []model.CustomerFeatures {
	out := make([]model.CustomerFeatures, 0, count)
	for i := 0; i < count; i++ {
		jitter := func(scale float64) float64 { return (rng.Float64() - 0.5) * scale }
		out = append(out, model.CustomerFeatures{
			CustomerID:         idStart + i,
			Age:                age + jitter(2),
			Income:             income + jitter(100),
			M12MeanBalance:     balance + jitter(200),
			M12StdBalance:      balance/10 + jitter(20),
			M12MeanCardSpend:   income/10 + jitter(10),
			M12MeanUtilization: 0.3 + jitter(0.02),
			M12MeanPix:         pix + jitter(1),
			M12LatePaymentRate: 0.1 + jitter(0.01),
			Cluster:            model.ClusterUnassigned,
		})
	}
	return out
}

func separableFeatures() []model.CustomerFeatures {
	rng := rand.New(rand.NewSource(1))
	var features []model.CustomerFeatures
	features = append(features, blob(rng, 0, 30, 25, 3000, 1000, 30)...)
	features = append(features, blob(rng, 100, 30, 45, 12000, 60000, 10)...)
	features = append(features, blob(rng, 200, 30, 65, 5000, 20000, 2)...)
	return features
}

func TestFitRecoversSeparatedGroups(t *testing.T) {
	features := separableFeatures()

	result, err := New(testClusterConfig(3), 42).Fit(context.Background(), features)
	if err != nil {
		t.Fatalf("Fit() = %v", err)
	}

	if len(result.Assignments) != len(features) {
		t.Fatalf("got %d assignments, want %d", len(result.Assignments), len(features))
	}

	// Every customer in a blob must land in the same cluster, and the three
	// blobs in three different ones.
	blobCluster := make(map[int]int)
	for _, f := range features {
		base := f.CustomerID / 100
		cl := result.Assignments[f.CustomerID]
		if prev, ok := blobCluster[base]; ok && prev != cl {
			t.Fatalf("blob %d split across clusters %d and %d", base, prev, cl)
		}
		blobCluster[base] = cl
	}
	distinct := make(map[int]bool)
	for _, cl := range blobCluster {
		distinct[cl] = true
	}
	if len(distinct) != 3 {
		t.Fatalf("blobs mapped to %d clusters, want 3", len(distinct))
	}

	if result.Silhouette < 0.5 {
		t.Errorf("silhouette = %g on well-separated data, want > 0.5", result.Silhouette)
	}
	if result.Silhouette > 1 || result.Silhouette < -1 {
		t.Errorf("silhouette = %g outside [-1,1]", result.Silhouette)
	}

	for _, p := range result.Profiles {
		if p.Customers == 0 {
			t.Errorf("cluster %d is empty", p.Cluster)
		}
		if p.Name == "" {
			t.Errorf("cluster %d has no label", p.Cluster)
		}
	}
}

func TestFitDeterministic(t *testing.T) {
	features := separableFeatures()
	ctx := context.Background()

	a, err := New(testClusterConfig(3), 42).Fit(ctx, features)
	if err != nil {
		t.Fatalf("Fit() = %v", err)
	}
	b, err := New(testClusterConfig(3), 42).Fit(ctx, features)
	if err != nil {
		t.Fatalf("Fit() = %v", err)
	}

	for id, cl := range a.Assignments {
		if b.Assignments[id] != cl {
			t.Fatalf("customer %d assigned to %d and %d across identical runs", id, cl, b.Assignments[id])
		}
	}
	if a.Silhouette != b.Silhouette {
		t.Errorf("silhouette differs across identical runs: %g vs %g", a.Silhouette, b.Silhouette)
	}
}

func TestFitErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(testClusterConfig(2), 42).Fit(ctx, nil)
	if !errors.Is(err, common.ErrEmptyDataset) {
		t.Errorf("Fit(nil) error = %v, want ErrEmptyDataset", err)
	}

	few := blob(rand.New(rand.NewSource(1)), 0, 3, 30, 5000, 1000, 5)
	_, err = New(testClusterConfig(4), 42).Fit(ctx, few)
	if !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("Fit(3 rows, k=4) error = %v, want ErrDegenerateInput", err)
	}
}

func TestApply(t *testing.T) {
	features := []model.CustomerFeatures{
		{CustomerID: 1, Cluster: model.ClusterUnassigned},
		{CustomerID: 2, Cluster: model.ClusterUnassigned},
	}
	result := &model.ClusterResult{
		Assignments: map[int]int{1: 0, 2: 1},
		Profiles: []model.ClusterProfile{
			{Cluster: 0, Name: model.ProfileAltaRenda},
			{Cluster: 1, Name: model.ProfileConservador},
		},
	}

	if err := Apply(features, result); err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if features[0].Cluster != 0 || features[0].ClusterName != model.ProfileAltaRenda {
		t.Errorf("customer 1 = cluster %d %q", features[0].Cluster, features[0].ClusterName)
	}
	if features[1].Cluster != 1 || features[1].ClusterName != model.ProfileConservador {
		t.Errorf("customer 2 = cluster %d %q", features[1].Cluster, features[1].ClusterName)
	}

	orphan := []model.CustomerFeatures{{CustomerID: 99}}
	if err := Apply(orphan, result); !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("Apply(orphan) error = %v, want ErrDegenerateInput", err)
	}
}

func TestLabelDecisionTable(t *testing.T) {
	profiles := []model.ClusterProfile{
		// Highest late rate and tied-highest pix: risk + digital.
		{Cluster: 0, LatePaymentRate: 0.30, MeanIncome: 4000, MeanPix: 20},
		// Highest income.
		{Cluster: 1, LatePaymentRate: 0.05, MeanIncome: 15000, MeanPix: 8},
		// Tied-highest pix without the risk or income crowns.
		{Cluster: 2, LatePaymentRate: 0.08, MeanIncome: 5000, MeanPix: 20},
		// None of the above.
		{Cluster: 3, LatePaymentRate: 0.04, MeanIncome: 4500, MeanPix: 5},
	}

	label(profiles)

	want := []string{
		model.ProfileDigitalCredito,
		model.ProfileAltaRenda,
		model.ProfileDigitalEstavel,
		model.ProfileConservador,
	}
	for i, p := range profiles {
		if p.Name != want[i] {
			t.Errorf("cluster %d labeled %q, want %q", p.Cluster, p.Name, want[i])
		}
		if p.Description == "" {
			t.Errorf("cluster %d has no description", p.Cluster)
		}
	}
}

func TestDenseRankDescWithTies(t *testing.T) {
	profiles := []model.ClusterProfile{
		{MeanIncome: 100},
		{MeanIncome: 300},
		{MeanIncome: 300},
		{MeanIncome: 200},
	}

	ranks := denseRankDesc(profiles, func(p model.ClusterProfile) float64 { return p.MeanIncome })
	want := []int{3, 1, 1, 2}
	for i := range want {
		if ranks[i] != want[i] {
			t.Errorf("rank[%d] = %d, want %d", i, ranks[i], want[i])
		}
	}
}

func TestSilhouetteGuards(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 0.1, 5, 5.1})

	// k=1 has no between-cluster distance to compare against.
	if _, err := silhouette(X, []int{0, 0, 0, 0}, 1); !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("silhouette(k=1) error = %v, want ErrDegenerateInput", err)
	}
	// k=2 declared but only one cluster populated is just as undefined.
	if _, err := silhouette(X, []int{0, 0, 0, 0}, 2); !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("silhouette(one populated cluster) error = %v, want ErrDegenerateInput", err)
	}

	s, err := silhouette(X, []int{0, 0, 1, 1}, 2)
	if err != nil {
		t.Fatalf("silhouette() = %v", err)
	}
	if s < 0.9 || s > 1 {
		t.Errorf("silhouette = %g on two tight separated pairs, want near 1", s)
	}
}

func TestSilhouetteSingletonScoresZero(t *testing.T) {
	// The singleton's own term is 0 by convention; the pair still scores.
	X := mat.NewDense(3, 1, []float64{0, 0.1, 9})
	s, err := silhouette(X, []int{0, 0, 1}, 2)
	if err != nil {
		t.Fatalf("silhouette() = %v", err)
	}
	if math.IsNaN(s) || s < -1 || s > 1 {
		t.Errorf("silhouette = %g, want a value in [-1,1]", s)
	}
	if s <= 0 {
		t.Errorf("silhouette = %g, want positive from the separated pair", s)
	}
}
