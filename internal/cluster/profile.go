package cluster

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/garimpo-ds/garimpo/internal/model"
)

// Profile descriptions shown on the cluster cards, written by the product
// team for the campaign audience.
const (
	descDigitalCredito = "Alto uso digital (PIX) e maior risco (atrasos). Perfil sensível a gestão de crédito e prevenção."
	descAltaRenda      = "Maior renda e baixo risco. Perfil com alto potencial para investimento e cross-sell premium."
	descDigitalEstavel = "Uso digital alto com baixa inadimplência. Bom candidato a expansão de portfólio (investimentos/seguros)."
	descConservador    = "Uso digital moderado e baixo risco. Perfil mais tradicional, boa resposta a ofertas simples e educação financeira."
)

// buildProfiles summarizes each cluster on the original feature scale and
// derives its business label from how the cluster ranks against the others.
func buildProfiles(features []model.CustomerFeatures, assignments []int, k int) []model.ClusterProfile {
	groups := make([][]model.CustomerFeatures, k)
	for i, f := range features {
		cl := assignments[i]
		groups[cl] = append(groups[cl], f)
	}

	profiles := make([]model.ClusterProfile, k)
	for cl, members := range groups {
		profiles[cl] = summarize(cl, members)
	}

	label(profiles)
	return profiles
}

func summarize(cl int, members []model.CustomerFeatures) model.ClusterProfile {
	p := model.ClusterProfile{Cluster: cl, Customers: len(members)}
	if len(members) == 0 {
		return p
	}

	n := len(members)
	cols := map[*float64]func(model.CustomerFeatures) float64{
		&p.MeanAge:         func(f model.CustomerFeatures) float64 { return f.Age },
		&p.MeanIncome:      func(f model.CustomerFeatures) float64 { return f.Income },
		&p.MeanBalance:     func(f model.CustomerFeatures) float64 { return f.M12MeanBalance },
		&p.StdBalance:      func(f model.CustomerFeatures) float64 { return f.M12StdBalance },
		&p.MeanCardSpend:   func(f model.CustomerFeatures) float64 { return f.M12MeanCardSpend },
		&p.MeanUtilization: func(f model.CustomerFeatures) float64 { return f.M12MeanUtilization },
		&p.MeanPix:         func(f model.CustomerFeatures) float64 { return f.M12MeanPix },
		&p.LatePaymentRate: func(f model.CustomerFeatures) float64 { return f.M12LatePaymentRate },
	}

	vals := make([]float64, n)
	for dst, get := range cols {
		for i, f := range members {
			vals[i] = get(f)
		}
		*dst = stat.Mean(vals, nil)
	}
	return p
}

// label names each cluster from its dense rank on late payments, income and
// PIX usage. Risk plus digital wins over income, income over digital alone.
func label(profiles []model.ClusterProfile) {
	riskRank := denseRankDesc(profiles, func(p model.ClusterProfile) float64 { return p.LatePaymentRate })
	incomeRank := denseRankDesc(profiles, func(p model.ClusterProfile) float64 { return p.MeanIncome })
	pixRank := denseRankDesc(profiles, func(p model.ClusterProfile) float64 { return p.MeanPix })

	for i := range profiles {
		highRisk := riskRank[i] == 1
		highIncome := incomeRank[i] == 1
		highDigital := pixRank[i] == 1

		switch {
		case highRisk && highDigital:
			profiles[i].Name = model.ProfileDigitalCredito
			profiles[i].Description = descDigitalCredito
		case highIncome:
			profiles[i].Name = model.ProfileAltaRenda
			profiles[i].Description = descAltaRenda
		case highDigital:
			profiles[i].Name = model.ProfileDigitalEstavel
			profiles[i].Description = descDigitalEstavel
		default:
			profiles[i].Name = model.ProfileConservador
			profiles[i].Description = descConservador
		}
	}
}

// denseRankDesc ranks profiles by the given value, largest first; equal
// values share a rank and the next distinct value takes the following one.
func denseRankDesc(profiles []model.ClusterProfile, get func(model.ClusterProfile) float64) []int {
	unique := make([]float64, 0, len(profiles))
	seen := make(map[float64]bool)
	for _, p := range profiles {
		v := get(p)
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(unique)))

	rankOf := make(map[float64]int, len(unique))
	for i, v := range unique {
		rankOf[v] = i + 1
	}

	ranks := make([]int, len(profiles))
	for i, p := range profiles {
		ranks[i] = rankOf[get(p)]
	}
	return ranks
}
