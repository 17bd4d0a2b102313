package models

// PeerMultiples carries the peer-panel medians the relative-valuation
// strategy applies to the target's own metrics. Supplied by the
// data-acquisition layer alongside the snapshot.
type PeerMultiples struct {
	MedianPE        float64  `json:"median_pe"`
	MedianEVEBITDA  float64  `json:"median_ev_ebitda"`
	MedianEVRevenue float64  `json:"median_ev_revenue"`
	Peers           []string `json:"peers,omitempty"`
}
