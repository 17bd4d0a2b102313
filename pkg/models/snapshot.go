package models

// CompanySnapshot is the immutable set of facts about the target
// company at valuation time. It is produced by the data-acquisition
// layer and never mutated by the engine; perturbed variants (Monte
// Carlo beta shocks) are built with Clone.
type CompanySnapshot struct {
	// Identity
	Ticker   string `json:"ticker"`
	Name     string `json:"name,omitempty"`
	Currency string `json:"currency"`
	Sector   string `json:"sector,omitempty"`

	// Market data
	CurrentPrice      float64  `json:"current_price"`
	SharesOutstanding float64  `json:"shares_outstanding"`
	Beta              *float64 `json:"beta,omitempty"`

	// Income statement / cash flow (TTM aggregates)
	RevenueTTM       float64   `json:"revenue_ttm"`
	EBITTTM          float64   `json:"ebit_ttm"`
	NetIncomeTTM     float64   `json:"net_income_ttm"`
	EPSTTM           float64   `json:"eps_ttm"`
	FCFTTM           *float64  `json:"fcf_ttm,omitempty"`
	FCFHistory       []float64 `json:"fcf_history,omitempty"` // oldest first
	DividendPerShare float64   `json:"dividend_per_share"`
	DepreciationTTM  float64   `json:"depreciation_ttm"`
	CapexTTM         float64   `json:"capex_ttm"`
	InterestExpense  float64   `json:"interest_expense"`
	NetBorrowing     float64   `json:"net_borrowing"`

	// Balance sheet
	TotalDebt         float64 `json:"total_debt"`
	Cash              float64 `json:"cash"`
	MinorityInterests float64 `json:"minority_interests"`
	PensionProvisions float64 `json:"pension_provisions"`
	BookValuePerShare float64 `json:"book_value_per_share"`

	// Share-count history for dilution estimation (oldest first)
	SharesHistory []float64 `json:"shares_history,omitempty"`

	// Peer medians for the relative-valuation strategy
	Peers *PeerMultiples `json:"peers,omitempty"`
}

// EBITDATTM approximates EBITDA as EBIT plus D&A.
func (s *CompanySnapshot) EBITDATTM() float64 {
	return s.EBITTTM + s.DepreciationTTM
}

// MarketCap returns price x shares.
func (s *CompanySnapshot) MarketCap() float64 {
	return s.CurrentPrice * s.SharesOutstanding
}

// NetDebt returns total debt minus cash.
func (s *CompanySnapshot) NetDebt() float64 {
	return s.TotalDebt - s.Cash
}

// ResolvedBeta returns the provider beta, or the system default when
// the provider has none.
func (s *CompanySnapshot) ResolvedBeta() (float64, Provenance) {
	if s.Beta != nil {
		return *s.Beta, SourceProvider
	}
	return DefaultBeta, SourceSystem
}

// Clone returns a deep copy safe to perturb.
func (s *CompanySnapshot) Clone() *CompanySnapshot {
	c := *s
	if s.Beta != nil {
		b := *s.Beta
		c.Beta = &b
	}
	if s.FCFTTM != nil {
		f := *s.FCFTTM
		c.FCFTTM = &f
	}
	c.FCFHistory = append([]float64(nil), s.FCFHistory...)
	c.SharesHistory = append([]float64(nil), s.SharesHistory...)
	if s.Peers != nil {
		p := *s.Peers
		p.Peers = append([]string(nil), s.Peers.Peers...)
		c.Peers = &p
	}
	return &c
}
