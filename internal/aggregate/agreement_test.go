// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/provider-verify/pkg/types"
)

func TestAgreement(t *testing.T) {
	withPhone := func(s types.Source, phone string, ok bool) types.SourceOutcome {
		return types.SourceOutcome{Source: s, Success: ok, Data: map[string]string{"phone": phone}}
	}

	t.Run("majority reaches consensus", func(t *testing.T) {
		fa := Agreement([]types.SourceOutcome{
			withPhone(types.SourceNPIRegistry, "617-555-0100", true),
			withPhone(types.SourceGooglePlaces, " 617-555-0100", true),
			withPhone(types.SourcePracticeWebsite, "617-555-0199", true),
		}, "phone")

		assert.Equal(t, 3, fa.SourcesChecked)
		assert.InDelta(t, 66.666, fa.AgreementRate, 0.01)
		assert.False(t, fa.Consensus, "two of three sources is just under the cut")
		assert.Equal(t, 2, fa.Values["617-555-0100"].Count)
	})

	t.Run("unanimous", func(t *testing.T) {
		fa := Agreement([]types.SourceOutcome{
			withPhone(types.SourceNPIRegistry, "A", true),
			withPhone(types.SourceGooglePlaces, "a", true),
		}, "phone")
		assert.Equal(t, 100.0, fa.AgreementRate)
		assert.True(t, fa.Consensus)
		assert.Equal(t, []types.Source{types.SourceNPIRegistry, types.SourceGooglePlaces}, fa.Values["a"].Sources)
	})

	t.Run("failed outcomes and missing fields are ignored", func(t *testing.T) {
		fa := Agreement([]types.SourceOutcome{
			withPhone(types.SourceNPIRegistry, "A", false),
			{Source: types.SourceGooglePlaces, Success: true},
		}, "phone")
		assert.Equal(t, 0, fa.SourcesChecked)
		assert.Equal(t, 0.0, fa.AgreementRate)
		assert.False(t, fa.Consensus)
	})
}
