// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claims

import "github.com/pdiddy/claim-engine/pkg/types"

// defaultThresholds mirrors the zero-config aggregation behavior.
func defaultThresholds() types.VerdictThresholds {
	return types.VerdictThresholds{
		SupportRatio:    0.7,
		ContradictRatio: 0.7,
		MinEvidenceSum:  0.3,
	}
}

// AggregateVerdict folds judged evidence into a verdict and a
// confidence. Ratios are over relevant (non-irrelevant) items; mixed
// evidence counts as relevant but pushes toward neither side.
func AggregateVerdict(evidence []types.EvidenceItem, th types.VerdictThresholds) (types.ClaimVerdict, float64) {
	if th.SupportRatio == 0 {
		th.SupportRatio = defaultThresholds().SupportRatio
	}
	if th.ContradictRatio == 0 {
		th.ContradictRatio = defaultThresholds().ContradictRatio
	}
	if th.MinEvidenceSum == 0 {
		th.MinEvidenceSum = defaultThresholds().MinEvidenceSum
	}

	if len(evidence) == 0 {
		return types.VerdictInsufficient, 0
	}

	var scoreSum float64
	var supports, contradicts, mixed int
	for _, ev := range evidence {
		scoreSum += ev.Score
		switch ev.Polarity {
		case types.PolaritySupports:
			supports++
		case types.PolarityContradicts:
			contradicts++
		case types.PolarityMixed:
			mixed++
		}
	}

	avg := scoreSum / float64(len(evidence))
	relevant := supports + contradicts + mixed
	if relevant == 0 {
		conf := avg
		if conf < 0.1 {
			conf = 0.1
		}
		return types.VerdictInsufficient, conf
	}

	supportRatio := float64(supports) / float64(relevant)
	contradictRatio := float64(contradicts) / float64(relevant)

	var verdict types.ClaimVerdict
	switch {
	case supportRatio > th.SupportRatio:
		verdict = types.VerdictSupported
	case contradictRatio > th.ContradictRatio:
		verdict = types.VerdictContradicted
	case supportRatio+contradictRatio < th.MinEvidenceSum:
		verdict = types.VerdictInsufficient
	default:
		verdict = types.VerdictMixed
	}

	// More relevant evidence raises confidence, capped below certainty.
	strength := float64(relevant) / 5
	if strength > 1 {
		strength = 1
	}
	confidence := avg*0.7 + strength*0.3
	if confidence > 0.95 {
		confidence = 0.95
	}
	return verdict, confidence
}
