// Package config holds the pipeline configuration passed explicitly to every
// stage. Values come from defaults, the optional YAML config file, GARIMPO_*
// environment variables, and command-line flags, in that order.
package config

import (
	"fmt"
	"math"

	"github.com/spf13/viper"

	"github.com/garimpo-ds/garimpo/internal/common"
)

// Pipeline is the full configuration for one pipeline run. Stages receive it
// by value; nothing reads ambient global state during a run.
type Pipeline struct {
	Paths      Paths
	Generator  Generator
	Cluster    Cluster
	Markov     Markov
	Propensity Propensity
	Survival   Survival
	Blend      Blend
	Seed       int64
}

// Generator configures the synthetic panel.
type Generator struct {
	Customers int
	Months    int
}

// Cluster configures the K-Means stage.
type Cluster struct {
	K       int
	NInit   int
	MaxIter int
}

// Markov configures the stationary-distribution solver.
type Markov struct {
	Tolerance float64
	MaxIter   int
}

// Propensity configures the adoption classifier.
type Propensity struct {
	Algorithm    string // "gbm" or "logistic"
	Rounds       int
	LearningRate float64
	MaxDepth     int
	Subsample    float64
	L2           float64
	TestFraction float64
}

// Survival configures the Cox proportional-hazards fit.
type Survival struct {
	Penalizer float64
	Tolerance float64
	MaxIter   int
}

// Blend holds the composite-score weights. WPropensity, WUrgency and WRisk
// must sum to 1; WHorizon and WExpectedTime mix the two urgency inputs and
// must also sum to 1.
type Blend struct {
	WPropensity   float64
	WUrgency      float64
	WRisk         float64
	WHorizon      float64
	WExpectedTime float64
	TopN          int
}

// Default returns the configuration the pipeline ships with.
func Default() Pipeline {
	return Pipeline{
		Seed: 42,
		Generator: Generator{
			Customers: 1000,
			Months:    12,
		},
		Cluster: Cluster{
			K:       4,
			NInit:   20,
			MaxIter: 300,
		},
		Markov: Markov{
			Tolerance: 1e-10,
			MaxIter:   10000,
		},
		Propensity: Propensity{
			Algorithm:    "gbm",
			Rounds:       200,
			LearningRate: 0.05,
			MaxDepth:     3,
			Subsample:    0.9,
			L2:           1.0,
			TestFraction: 0.25,
		},
		Survival: Survival{
			Penalizer: 0.01,
			Tolerance: 1e-7,
			MaxIter:   100,
		},
		Blend: Blend{
			WPropensity:   0.50,
			WUrgency:      0.30,
			WRisk:         0.20,
			WHorizon:      0.60,
			WExpectedTime: 0.40,
			TopN:          10,
		},
		Paths: DefaultPaths(),
	}
}

// SetDefaults registers every configuration key with viper so config files
// and environment variables can override them.
func SetDefaults() {
	def := Default()
	viper.SetDefault("seed", def.Seed)
	viper.SetDefault("generator.customers", def.Generator.Customers)
	viper.SetDefault("generator.months", def.Generator.Months)
	viper.SetDefault("cluster.k", def.Cluster.K)
	viper.SetDefault("cluster.n_init", def.Cluster.NInit)
	viper.SetDefault("cluster.max_iter", def.Cluster.MaxIter)
	viper.SetDefault("markov.tolerance", def.Markov.Tolerance)
	viper.SetDefault("markov.max_iter", def.Markov.MaxIter)
	viper.SetDefault("propensity.algorithm", def.Propensity.Algorithm)
	viper.SetDefault("propensity.rounds", def.Propensity.Rounds)
	viper.SetDefault("propensity.learning_rate", def.Propensity.LearningRate)
	viper.SetDefault("propensity.max_depth", def.Propensity.MaxDepth)
	viper.SetDefault("propensity.subsample", def.Propensity.Subsample)
	viper.SetDefault("propensity.l2", def.Propensity.L2)
	viper.SetDefault("propensity.test_fraction", def.Propensity.TestFraction)
	viper.SetDefault("survival.penalizer", def.Survival.Penalizer)
	viper.SetDefault("survival.tolerance", def.Survival.Tolerance)
	viper.SetDefault("survival.max_iter", def.Survival.MaxIter)
	viper.SetDefault("blend.w_propensity", def.Blend.WPropensity)
	viper.SetDefault("blend.w_urgency", def.Blend.WUrgency)
	viper.SetDefault("blend.w_risk", def.Blend.WRisk)
	viper.SetDefault("blend.w_horizon", def.Blend.WHorizon)
	viper.SetDefault("blend.w_expected_time", def.Blend.WExpectedTime)
	viper.SetDefault("blend.top_n", def.Blend.TopN)
	viper.SetDefault("paths.data_dir", def.Paths.DataDir)
	viper.SetDefault("paths.reports_dir", def.Paths.ReportsDir)
	viper.SetDefault("paths.ledger", def.Paths.Ledger)
}

// FromViper assembles the pipeline configuration from whatever viper has
// resolved (defaults, file, environment, bound flags).
func FromViper() (Pipeline, error) {
	cfg := Pipeline{
		Seed: viper.GetInt64("seed"),
		Generator: Generator{
			Customers: viper.GetInt("generator.customers"),
			Months:    viper.GetInt("generator.months"),
		},
		Cluster: Cluster{
			K:       viper.GetInt("cluster.k"),
			NInit:   viper.GetInt("cluster.n_init"),
			MaxIter: viper.GetInt("cluster.max_iter"),
		},
		Markov: Markov{
			Tolerance: viper.GetFloat64("markov.tolerance"),
			MaxIter:   viper.GetInt("markov.max_iter"),
		},
		Propensity: Propensity{
			Algorithm:    viper.GetString("propensity.algorithm"),
			Rounds:       viper.GetInt("propensity.rounds"),
			LearningRate: viper.GetFloat64("propensity.learning_rate"),
			MaxDepth:     viper.GetInt("propensity.max_depth"),
			Subsample:    viper.GetFloat64("propensity.subsample"),
			L2:           viper.GetFloat64("propensity.l2"),
			TestFraction: viper.GetFloat64("propensity.test_fraction"),
		},
		Survival: Survival{
			Penalizer: viper.GetFloat64("survival.penalizer"),
			Tolerance: viper.GetFloat64("survival.tolerance"),
			MaxIter:   viper.GetInt("survival.max_iter"),
		},
		Blend: Blend{
			WPropensity:   viper.GetFloat64("blend.w_propensity"),
			WUrgency:      viper.GetFloat64("blend.w_urgency"),
			WRisk:         viper.GetFloat64("blend.w_risk"),
			WHorizon:      viper.GetFloat64("blend.w_horizon"),
			WExpectedTime: viper.GetFloat64("blend.w_expected_time"),
			TopN:          viper.GetInt("blend.top_n"),
		},
		Paths: Paths{
			DataDir:    viper.GetString("paths.data_dir"),
			ReportsDir: viper.GetString("paths.reports_dir"),
			Ledger:     viper.GetString("paths.ledger"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Pipeline{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Pipeline) Validate() error {
	if c.Generator.Customers <= 0 {
		return fmt.Errorf("%w: generator.customers must be positive, got %d", common.ErrInvalidConfig, c.Generator.Customers)
	}
	if c.Generator.Months < 2 {
		return fmt.Errorf("%w: generator.months must be at least 2, got %d", common.ErrInvalidConfig, c.Generator.Months)
	}
	if c.Cluster.K < 2 {
		return fmt.Errorf("%w: cluster.k must be at least 2, got %d", common.ErrInvalidConfig, c.Cluster.K)
	}
	if c.Cluster.NInit < 1 {
		return fmt.Errorf("%w: cluster.n_init must be at least 1, got %d", common.ErrInvalidConfig, c.Cluster.NInit)
	}
	switch c.Propensity.Algorithm {
	case "gbm", "logistic":
	default:
		return fmt.Errorf("%w: propensity.algorithm must be gbm or logistic, got %q", common.ErrInvalidConfig, c.Propensity.Algorithm)
	}
	if c.Propensity.TestFraction <= 0 || c.Propensity.TestFraction >= 1 {
		return fmt.Errorf("%w: propensity.test_fraction must be in (0,1), got %g", common.ErrInvalidConfig, c.Propensity.TestFraction)
	}
	if c.Propensity.Subsample <= 0 || c.Propensity.Subsample > 1 {
		return fmt.Errorf("%w: propensity.subsample must be in (0,1], got %g", common.ErrInvalidConfig, c.Propensity.Subsample)
	}
	blendSum := c.Blend.WPropensity + c.Blend.WUrgency + c.Blend.WRisk
	if math.Abs(blendSum-1.0) > 1e-6 {
		return fmt.Errorf("%w: blend weights sum to %g, expected 1", common.ErrInvalidConfig, blendSum)
	}
	urgencySum := c.Blend.WHorizon + c.Blend.WExpectedTime
	if math.Abs(urgencySum-1.0) > 1e-6 {
		return fmt.Errorf("%w: urgency weights sum to %g, expected 1", common.ErrInvalidConfig, urgencySum)
	}
	for name, w := range map[string]float64{
		"blend.w_propensity": c.Blend.WPropensity,
		"blend.w_urgency":    c.Blend.WUrgency,
		"blend.w_risk":       c.Blend.WRisk,
	} {
		if w < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", common.ErrInvalidConfig, name, w)
		}
	}
	return nil
}
