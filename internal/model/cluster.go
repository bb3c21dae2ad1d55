package model

// Business labels assigned to clusters by the profiling decision table.
// Names follow the commercial segmentation used by the product team.
const (
	ProfileDigitalCredito = "Digital Crédito Intensivo"
	ProfileAltaRenda      = "Alta Renda Estável"
	ProfileDigitalEstavel = "Digital Estável"
	ProfileConservador    = "Conservador Tradicional"
)

// ClusterProfile is the human-readable card summarizing one cluster:
// member count, centroid statistics on the original feature scale, and the
// business label derived from them.
type ClusterProfile struct {
	Name            string
	Description     string
	Cluster         int
	Customers       int
	MeanAge         float64
	MeanIncome      float64
	MeanBalance     float64
	StdBalance      float64
	MeanCardSpend   float64
	MeanUtilization float64
	MeanPix         float64
	LatePaymentRate float64
}

// ClusterResult bundles everything the cluster stage produces: one
// assignment per customer, the fitted centroids in standardized space, the
// silhouette cohesion score, and one profile card per cluster.
type ClusterResult struct {
	Assignments map[int]int // customer_id -> cluster
	Centroids   [][]float64
	Profiles    []ClusterProfile
	Silhouette  float64
	WithinSS    float64
	K           int
}

// Size returns the member count of the given cluster.
func (r *ClusterResult) Size(cluster int) int {
	n := 0
	for _, c := range r.Assignments {
		if c == cluster {
			n++
		}
	}
	return n
}
