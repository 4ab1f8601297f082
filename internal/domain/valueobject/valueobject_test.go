package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

func TestTierThresholds_Tier(t *testing.T) {
	th := valueobject.DefaultTierThresholds()

	tests := []struct {
		score    float64
		expected valueobject.RiskTier
	}{
		{0, valueobject.RiskTierLow},
		{0.29, valueobject.RiskTierLow},
		{0.3, valueobject.RiskTierMedium},
		{0.59, valueobject.RiskTierMedium},
		{0.6, valueobject.RiskTierHigh},
		{0.84, valueobject.RiskTierHigh},
		{0.85, valueobject.RiskTierCritical},
		{0.92, valueobject.RiskTierCritical},
		{1, valueobject.RiskTierCritical},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, th.Tier(tt.score), "score %.2f", tt.score)
		})
	}
}

func TestTierThresholds_Validate(t *testing.T) {
	require.NoError(t, valueobject.DefaultTierThresholds().Validate())

	bad := []valueobject.TierThresholds{
		{Medium: 0, High: 0.6, Critical: 0.85},
		{Medium: 0.6, High: 0.3, Critical: 0.85},
		{Medium: 0.3, High: 0.6, Critical: 1.2},
	}
	for _, th := range bad {
		assert.Error(t, th.Validate(), "%+v", th)
	}
}

func TestRiskTier_FromString(t *testing.T) {
	for _, tier := range []valueobject.RiskTier{
		valueobject.RiskTierLow, valueobject.RiskTierMedium, valueobject.RiskTierHigh, valueobject.RiskTierCritical,
	} {
		got, err := valueobject.RiskTierFromString(tier.String())
		require.NoError(t, err)
		assert.True(t, got.Equal(tier))
		assert.NotEmpty(t, got.Recommendation())
	}

	_, err := valueobject.RiskTierFromString("SEVERE")
	assert.Error(t, err)
	assert.True(t, valueobject.RiskTier{}.IsZero())
}

func TestRiskTier_AtLeast(t *testing.T) {
	assert.True(t, valueobject.RiskTierCritical.AtLeast(valueobject.RiskTierHigh))
	assert.True(t, valueobject.RiskTierHigh.AtLeast(valueobject.RiskTierHigh))
	assert.False(t, valueobject.RiskTierMedium.AtLeast(valueobject.RiskTierHigh))
	assert.False(t, valueobject.RiskTier{}.AtLeast(valueobject.RiskTierLow))
}

func TestCategoryFromString(t *testing.T) {
	c, err := valueobject.CategoryFromString(" street_vendor_goods ")
	require.NoError(t, err)
	assert.Equal(t, valueobject.CategoryStreetVendorGoods, c)
	assert.True(t, c.IsSmallVendor())
	assert.Equal(t, "Street Vendor - Goods", c.Label())

	c, err = valueobject.CategoryFromString("MANUFACTURING")
	require.NoError(t, err)
	assert.False(t, c.IsSmallVendor())

	c, err = valueobject.CategoryFromString("jewelry")
	require.NoError(t, err)
	assert.Equal(t, "Jewelry/Gold Business", c.Label())

	_, err = valueobject.CategoryFromString("BANK")
	assert.Error(t, err)
}

func TestAllCategories_Catalogue(t *testing.T) {
	vendors := 0
	for _, c := range valueobject.AllCategories() {
		if c.IsSmallVendor() {
			vendors++
		}
	}
	assert.Equal(t, 10, vendors)
	assert.Len(t, valueobject.AllCategories(), 25)
}

func TestBusinessCategory_IsCashIntensive(t *testing.T) {
	tests := []struct {
		category valueobject.BusinessCategory
		want     bool
	}{
		{valueobject.CategoryRetail, true},
		{valueobject.CategoryRestaurant, true},
		{valueobject.CategoryJewelry, true},
		{valueobject.CategoryRealEstate, true},
		{valueobject.CategoryTeaStall, true},
		{valueobject.CategoryCorporate, false},
		{valueobject.CategoryTrading, false},
	}
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.category.IsCashIntensive())
		})
	}
}

func TestScoreStatus(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		assert.True(t, valueobject.StatusOK.IsOK())
		assert.Equal(t, "OK", valueobject.StatusOK.String())
		assert.Empty(t, valueobject.StatusOK.Reason())
	})

	t.Run("failed", func(t *testing.T) {
		s := valueobject.Failed(valueobject.ReasonParseError, "missing rationale")
		assert.True(t, s.IsFailed())
		assert.Equal(t, valueobject.ReasonParseError, s.Code())
		assert.Equal(t, "FAILED(ParseError: missing rationale)", s.String())
	})

	t.Run("unavailable without detail", func(t *testing.T) {
		s := valueobject.Unavailable(valueobject.ReasonNoCredentials, "")
		assert.True(t, s.IsUnavailable())
		assert.Equal(t, "NoCredentials", s.Reason())
	})

	t.Run("round trip", func(t *testing.T) {
		s := valueobject.Unavailable(valueobject.ReasonTimeout, "judge exceeded 20s")
		got, err := valueobject.ScoreStatusFromParts(s.Kind(), s.Code(), s.Detail())
		require.NoError(t, err)
		assert.True(t, got.Equal(s))

		_, err = valueobject.ScoreStatusFromParts("MAYBE", "", "")
		assert.Error(t, err)
	})
}

func TestScorerGroup(t *testing.T) {
	g, err := valueobject.ScorerGroupFromString("AI")
	require.NoError(t, err)
	assert.Equal(t, valueobject.ScorerGroupAI, g)
	assert.Less(t, valueobject.ScorerGroupML.Rank(), valueobject.ScorerGroupAI.Rank())

	_, err = valueobject.ScorerGroupFromString("RULES")
	assert.Error(t, err)
}
