package rates

import "glassbox_valuation/pkg/models"

// Damodaran synthetic-rating spreads keyed by interest coverage ratio.
// Two tables: firms above the large-cap threshold get investment-grade
// spreads at lower coverage than small/mid caps.
const largeCapThreshold = 5_000_000_000

type spreadRow struct {
	MinICR float64
	Spread float64
}

var spreadsLargeCap = []spreadRow{
	{8.5, 0.0069},  // AAA
	{6.5, 0.0085},  // AA
	{5.5, 0.0107},  // A+
	{4.25, 0.0118}, // A
	{3.0, 0.0133},  // A-
	{2.5, 0.0171},  // BBB
	{2.25, 0.0216}, // BB+
	{2.0, 0.0270},  // BB
	{1.75, 0.0387}, // B+
	{1.5, 0.0522},  // B
	{1.25, 0.0810}, // B-
	{0.8, 0.1116},  // CCC
	{0.65, 0.1575}, // CC
	{0.2, 0.1750},  // C
	{-999, 0.2000}, // D
}

var spreadsSmallMidCap = []spreadRow{
	{12.5, 0.0069}, // AAA
	{9.5, 0.0085},  // AA
	{7.5, 0.0107},  // A+
	{6.0, 0.0118},  // A
	{4.5, 0.0133},  // A-
	{4.0, 0.0171},  // BBB
	{3.5, 0.0216},  // BB+
	{3.0, 0.0270},  // BB
	{2.5, 0.0387},  // B+
	{2.0, 0.0522},  // B
	{1.5, 0.0810},  // B-
	{1.25, 0.1116}, // CCC
	{0.8, 0.1575},  // CC
	{0.5, 0.1750},  // C
	{-999, 0.2000}, // D
}

// SyntheticCostOfDebt derives a pre-tax cost of debt from the interest
// coverage ratio (EBIT / interest expense). Without observable EBIT or
// interest it falls back to an A-rated proxy spread over the risk-free
// rate.
func SyntheticCostOfDebt(riskFree, ebit, interestExpense, marketCap float64) float64 {
	if interestExpense <= 0 || ebit <= 0 {
		return riskFree + models.NoInterestDebtSpread
	}

	icr := ebit / interestExpense

	table := spreadsSmallMidCap
	if marketCap >= largeCapThreshold {
		table = spreadsLargeCap
	}
	for _, row := range table {
		if icr >= row.MinICR {
			return riskFree + row.Spread
		}
	}
	// Distressed fallback
	return riskFree + 0.1900
}
