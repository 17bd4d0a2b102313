package rates

// CostOfEquityCAPM computes Ke = Rf + beta * MRP.
func CostOfEquityCAPM(riskFree, beta, marketRiskPremium float64) float64 {
	return riskFree + beta*marketRiskPremium
}

// UnleverBeta strips financial leverage from an observed equity beta.
// BetaU = BetaL / (1 + (1-t)*(D/E))
func UnleverBeta(leveredBeta, taxRate, debtToEquity float64) float64 {
	return leveredBeta / (1 + (1-taxRate)*debtToEquity)
}

// ReleverBeta is the Hamada relation applied to a target structure.
// BetaL = BetaU * (1 + (1-t)*(D/E))
func ReleverBeta(unleveredBeta, taxRate, debtToEquity float64) float64 {
	return unleveredBeta * (1 + (1-taxRate)*debtToEquity)
}

// DEToWeights converts a debt/equity ratio into capital weights.
// D/E = x -> We = 1/(1+x), Wd = x/(1+x)
func DEToWeights(debtToEquity float64) (we, wd float64) {
	we = 1.0 / (1 + debtToEquity)
	wd = debtToEquity / (1 + debtToEquity)
	return we, wd
}
