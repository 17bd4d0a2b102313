package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestNewParameters_DecimalGuard(t *testing.T) {
	p, err := NewParameters(Parameters{
		Rates: RatesParams{
			RiskFreeRate:      fp(4.0),  // analyst typed percent
			MarketRiskPremium: fp(5.5),  // percent
			TaxRate:           fp(0.25), // already a fraction
		},
		Growth: GrowthParams{
			FCFGrowthRate:   fp(8.0),
			PerpetualGrowth: fp(2.0),
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.04, *p.Rates.RiskFreeRate, 1e-12)
	assert.InDelta(t, 0.055, *p.Rates.MarketRiskPremium, 1e-12)
	assert.InDelta(t, 0.25, *p.Rates.TaxRate, 1e-12)
	assert.InDelta(t, 0.08, *p.Growth.FCFGrowthRate, 1e-12)
	assert.InDelta(t, 0.02, *p.Growth.PerpetualGrowth, 1e-12)
}

func TestNewParameters_ZeroIsDeliberate(t *testing.T) {
	p, err := NewParameters(Parameters{
		Rates: RatesParams{TaxRate: fp(0.0)},
	})
	require.NoError(t, err)
	require.NotNil(t, p.Rates.TaxRate)
	assert.Equal(t, 0.0, *p.Rates.TaxRate)
}

func TestNewParameters_NilDelegates(t *testing.T) {
	p, err := NewParameters(Parameters{})
	require.NoError(t, err)
	assert.Nil(t, p.Rates.RiskFreeRate)
	assert.Equal(t, InputAuto, p.Source)
	assert.Equal(t, TVGordon, p.Growth.TVMethod)
	assert.Equal(t, DefaultYears, p.YearsOrDefault())
	assert.Equal(t, DefaultMCIterations, p.IterationsOrDefault())
}

func TestNewParameters_RejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		raw  Parameters
	}{
		{"perpetual growth above cap", Parameters{Growth: GrowthParams{PerpetualGrowth: fp(0.05)}}},
		{"negative risk-free", Parameters{Rates: RatesParams{RiskFreeRate: fp(-0.01)}}},
		{"horizon too long", Parameters{Growth: GrowthParams{Years: 20}}},
		{"rate beyond percent range", Parameters{Rates: RatesParams{RiskFreeRate: fp(250.0)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParameters(tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestFloat_Provenance(t *testing.T) {
	v, src := Float(fp(0.07), 0.04)
	assert.Equal(t, 0.07, v)
	assert.Equal(t, SourceManual, src)

	v, src = Float(nil, 0.04)
	assert.Equal(t, 0.04, v)
	assert.Equal(t, SourceSystem, src)
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	s := &CompanySnapshot{
		Ticker:     "ACME",
		Beta:       fp(1.2),
		FCFTTM:     fp(100.0),
		FCFHistory: []float64{80, 90, 100},
	}
	c := s.Clone()
	*c.Beta = 2.0
	c.FCFHistory[0] = 0

	assert.Equal(t, 1.2, *s.Beta)
	assert.Equal(t, 80.0, s.FCFHistory[0])
}

func TestSnapshot_ResolvedBeta(t *testing.T) {
	s := &CompanySnapshot{Beta: fp(1.3)}
	b, src := s.ResolvedBeta()
	assert.Equal(t, 1.3, b)
	assert.Equal(t, SourceProvider, src)

	b, src = (&CompanySnapshot{}).ResolvedBeta()
	assert.Equal(t, DefaultBeta, b)
	assert.Equal(t, SourceSystem, src)
}
