package propensity

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// design is the model input matrix: early-window behavior, the two stable
// demographics, and the cluster assignment one-hot encoded.
type design struct {
	X     *mat.Dense
	names []string
}

func newDesign(feats []model.CustomerFeatures) (*design, error) {
	k := 0
	for _, f := range feats {
		if f.Cluster == model.ClusterUnassigned {
			return nil, fmt.Errorf("%w: customer %d has no cluster assignment",
				common.ErrDegenerateInput, f.CustomerID)
		}
		if f.Cluster+1 > k {
			k = f.Cluster + 1
		}
	}

	names := []string{
		"age",
		"income",
		"m3_mean_balance",
		"m3_std_balance",
		"m3_mean_card_spend",
		"m3_mean_utilization",
		"m3_mean_pix",
		"m3_mean_digital",
		"m3_late_payment_rate",
	}
	numBase := len(names)
	for c := 0; c < k; c++ {
		names = append(names, fmt.Sprintf("cluster_%d", c))
	}

	X := mat.NewDense(len(feats), len(names), nil)
	for i, f := range feats {
		X.Set(i, 0, f.Age)
		X.Set(i, 1, f.Income)
		X.Set(i, 2, f.M3MeanBalance)
		X.Set(i, 3, f.M3StdBalance)
		X.Set(i, 4, f.M3MeanCardSpend)
		X.Set(i, 5, f.M3MeanUtilization)
		X.Set(i, 6, f.M3MeanPix)
		X.Set(i, 7, f.M3MeanDigital)
		X.Set(i, 8, f.M3LatePaymentRate)
		X.Set(i, numBase+f.Cluster, 1)
	}

	return &design{X: X, names: names}, nil
}

func (d *design) matrix() *mat.Dense {
	return d.X
}

// rows copies the selected rows into a new matrix.
func (d *design) rows(idx []int) *mat.Dense {
	_, cols := d.X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		out.SetRow(i, d.X.RawRowView(r))
	}
	return out
}
