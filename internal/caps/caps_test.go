package caps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupKnownVariants(t *testing.T) {
	for _, kind := range []Kind{SaraR4, SaraR5, SaraR422, LaraR6, SaraU201} {
		c, ok := Lookup(kind)
		require.True(t, ok, "%v should be in the table", kind)
		require.Equal(t, kind, c.Kind)
		require.NotEmpty(t, c.SupportedRATs)
		require.Greater(t, c.BootTime.Seconds(), 0.0)
	}
}

func TestLookupUnknownVariant(t *testing.T) {
	_, ok := Lookup(Kind(999))
	require.False(t, ok)
}

func TestHasFeature(t *testing.T) {
	r5, _ := Lookup(SaraR5)
	require.True(t, r5.HasFeature(FeatureMNOProfile))
	require.True(t, r5.HasFeature(Feature3GPPPowerSavingPagingWindow))
	require.False(t, r5.HasFeature(FeatureAckAidingViaCfgVal))

	r422, _ := Lookup(SaraR422)
	require.True(t, r422.HasFeature(FeatureAckAidingViaCfgVal))

	u201, _ := Lookup(SaraU201)
	require.Equal(t, Feature(0), u201.Features)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "SARA-R5", SaraR5.String())
	require.Equal(t, "unknown", Kind(999).String())
}
