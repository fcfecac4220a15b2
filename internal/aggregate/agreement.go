// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"strings"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// ConsensusRate is the agreement rate (percent) at which sources are
// considered to agree on a field: a two-thirds majority.
const ConsensusRate = 66.7

// ValueVotes counts how many sources asserted one value.
type ValueVotes struct {
	Count   int            `json:"count" yaml:"count"`
	Sources []types.Source `json:"sources" yaml:"sources"`
}

// FieldAgreement describes how well successful sources agree on one field.
type FieldAgreement struct {
	Field          string                `json:"field" yaml:"field"`
	SourcesChecked int                   `json:"sources_checked" yaml:"sources_checked"`
	AgreementRate  float64               `json:"agreement_rate" yaml:"agreement_rate"`
	Values         map[string]ValueVotes `json:"values" yaml:"values"`
	Consensus      bool                  `json:"consensus" yaml:"consensus"`
}

// Agreement compares the values successful sources assert for field. Values
// are compared case-insensitively after trimming.
func Agreement(outcomes []types.SourceOutcome, field string) FieldAgreement {
	fa := FieldAgreement{Field: field, Values: map[string]ValueVotes{}}

	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		v, ok := o.Data[field]
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(v))
		votes := fa.Values[key]
		votes.Count++
		votes.Sources = append(votes.Sources, o.Source)
		fa.Values[key] = votes
		fa.SourcesChecked++
	}

	if fa.SourcesChecked == 0 {
		return fa
	}

	maxCount := 0
	for _, v := range fa.Values {
		if v.Count > maxCount {
			maxCount = v.Count
		}
	}
	fa.AgreementRate = float64(maxCount) / float64(fa.SourcesChecked) * 100
	fa.Consensus = fa.AgreementRate >= ConsensusRate
	return fa
}
