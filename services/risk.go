package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// Risk tiers, from least to most urgent.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// Point thresholds for the tier buckets.
const (
	riskCriticalAt = 12
	riskHighAt     = 8
	riskMediumAt   = 4
)

// RiskInputs is the snapshot of case fields the scoring function reads.
// Nil means the field has no value. A case with no risk data at all gets
// no opinion rather than a LOW tier.
type RiskInputs struct {
	TotalLoanAmount *decimal.Decimal
	PosValue        *decimal.Decimal
	MinimumDue      *decimal.Decimal
	PenaltyAmount   *decimal.Decimal
	LateFee         *decimal.Decimal
	LateCharges     *decimal.Decimal
	Tenure          *int64
	EMIsPaid        *int64
	LastPaymentDate *time.Time
}

// RiskResult is a scored tier. A nil *RiskResult means "no risk data", which
// is a different statement than zero points.
type RiskResult struct {
	Tier   string
	Points int
}

// ScoreCase computes the additive risk score of a case snapshot. It is a
// pure function of its arguments: the same snapshot and reference time
// always produce the same result, so it is recomputed whenever the scored
// fields change instead of being cached.
//
// Three independently bounded components add up:
//   - outstanding ratio (POS / total loan)
//   - payment recency and tenure stress
//   - penalty pressure
func ScoreCase(in RiskInputs, now time.Time) *RiskResult {
	if in.allNil() {
		return nil
	}

	points := outstandingPoints(in.outstandingRatio())
	points += recencyPoints(in.daysSincePayment(now))
	points += tenurePoints(in.paidRatio(), in.outstandingRatio())
	points += penaltyPoints(in)

	return &RiskResult{Tier: tierFor(points), Points: points}
}

func tierFor(points int) string {
	switch {
	case points >= riskCriticalAt:
		return RiskCritical
	case points >= riskHighAt:
		return RiskHigh
	case points >= riskMediumAt:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (in RiskInputs) allNil() bool {
	return in.TotalLoanAmount == nil &&
		in.PosValue == nil &&
		in.MinimumDue == nil &&
		in.PenaltyAmount == nil &&
		in.LateFee == nil &&
		in.LateCharges == nil &&
		in.Tenure == nil &&
		in.EMIsPaid == nil &&
		in.LastPaymentDate == nil
}

// outstandingRatio is POS / total loan amount. A nil or zero denominator
// counts as ratio 0, never as an error.
func (in RiskInputs) outstandingRatio() float64 {
	if in.PosValue == nil || in.TotalLoanAmount == nil || in.TotalLoanAmount.IsZero() {
		return 0
	}
	ratio, _ := in.PosValue.Div(*in.TotalLoanAmount).Float64()
	return ratio
}

func outstandingPoints(ratio float64) int {
	switch {
	case ratio >= 0.90:
		return 8
	case ratio >= 0.70:
		return 6
	case ratio >= 0.50:
		return 4
	case ratio >= 0.30:
		return 2
	default:
		return 0
	}
}

// daysSincePayment returns -1 when the last payment date is unknown.
func (in RiskInputs) daysSincePayment(now time.Time) int {
	if in.LastPaymentDate == nil {
		return -1
	}
	days := int(now.Sub(*in.LastPaymentDate).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days
}

func recencyPoints(days int) int {
	switch {
	case days < 0:
		// Unknown counts as long-silent.
		return 6
	case days == 0:
		return 0
	case days <= 15:
		return 1
	case days <= 30:
		return 3
	case days <= 60:
		return 4
	default:
		return 6
	}
}

// paidRatio is EMIs paid over tenure; -1 when either side is unknown or the
// tenure is zero.
func (in RiskInputs) paidRatio() float64 {
	if in.EMIsPaid == nil || in.Tenure == nil || *in.Tenure == 0 {
		return -1
	}
	return float64(*in.EMIsPaid) / float64(*in.Tenure)
}

// tenurePoints crosses repayment progress against the outstanding ratio.
// Brackets are evaluated top to bottom; the first match wins. Unknown
// progress earns nothing; there is no basis to call the loan young.
func tenurePoints(paid, pos float64) int {
	if paid < 0 {
		return 0
	}
	switch {
	case paid < 0.25 && pos >= 0.70:
		return 4
	case paid < 0.50 && pos >= 0.70:
		return 3
	case paid < 0.25:
		return 2
	case paid < 0.50:
		return 1
	default:
		return 0
	}
}

// penaltyPoints is a flat 2 when any penalty-type amount is non-zero or a
// positive minimum due exists.
func penaltyPoints(in RiskInputs) int {
	sum := decimal.Zero
	for _, d := range []*decimal.Decimal{in.PenaltyAmount, in.LateFee, in.LateCharges} {
		if d != nil {
			sum = sum.Add(*d)
		}
	}
	if !sum.IsZero() {
		return 2
	}
	if in.MinimumDue != nil && in.MinimumDue.IsPositive() {
		return 2
	}
	return 0
}
