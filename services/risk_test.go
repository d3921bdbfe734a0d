package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func i64(n int64) *int64 { return &n }

func ts(t time.Time) *time.Time { return &t }

func TestScoreCaseNoDataNoOpinion(t *testing.T) {
	if got := ScoreCase(RiskInputs{}, time.Now()); got != nil {
		t.Fatalf("ScoreCase with no inputs = %+v, want nil", got)
	}
}

func TestScoreCaseDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	in := RiskInputs{
		TotalLoanAmount: dec("100000"),
		PosValue:        dec("95000"),
		Tenure:          i64(36),
		EMIsPaid:        i64(4),
		LastPaymentDate: ts(now.AddDate(0, 0, -45)),
		PenaltyAmount:   dec("1500"),
	}
	first := ScoreCase(in, now)
	second := ScoreCase(in, now)
	if first == nil || second == nil {
		t.Fatal("ScoreCase returned nil for populated inputs")
	}
	if *first != *second {
		t.Errorf("same inputs scored differently: %+v vs %+v", first, second)
	}
}

func TestScoreCaseTiers(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		in         RiskInputs
		wantPoints int
		wantTier   string
	}{
		{
			// ratio 0.95 -> 8, unknown recency -> 6, paid 4/36 with high
			// pos -> 4, penalty -> 2
			name: "deep distress",
			in: RiskInputs{
				TotalLoanAmount: dec("100000"),
				PosValue:        dec("95000"),
				Tenure:          i64(36),
				EMIsPaid:        i64(4),
				PenaltyAmount:   dec("1500"),
			},
			wantPoints: 20,
			wantTier:   RiskCritical,
		},
		{
			// ratio 0.10 -> 0, paid today -> 0, paid 30/36 -> 0, no penalty
			name: "healthy account",
			in: RiskInputs{
				TotalLoanAmount: dec("100000"),
				PosValue:        dec("10000"),
				Tenure:          i64(36),
				EMIsPaid:        i64(30),
				LastPaymentDate: ts(now),
			},
			wantPoints: 0,
			wantTier:   RiskLow,
		},
		{
			// ratio 0.55 -> 4, 20 days -> 3, paid 20/36 -> 0, no penalty
			name: "mid distress",
			in: RiskInputs{
				TotalLoanAmount: dec("100000"),
				PosValue:        dec("55000"),
				Tenure:          i64(36),
				EMIsPaid:        i64(20),
				LastPaymentDate: ts(now.AddDate(0, 0, -20)),
			},
			wantPoints: 7,
			wantTier:   RiskMedium,
		},
		{
			// ratio 0.75 -> 6, 10 days -> 1, paid 10/36 with high pos -> 3,
			// minimum due -> 2
			name: "critical through minimum due",
			in: RiskInputs{
				TotalLoanAmount: dec("200000"),
				PosValue:        dec("150000"),
				Tenure:          i64(36),
				EMIsPaid:        i64(10),
				LastPaymentDate: ts(now.AddDate(0, 0, -10)),
				MinimumDue:      dec("5000"),
			},
			wantPoints: 12,
			wantTier:   RiskCritical,
		},
		{
			// only a penalty is known: 2 points plus unknown recency 6
			name: "penalty only",
			in: RiskInputs{
				LateFee: dec("250"),
			},
			wantPoints: 8,
			wantTier:   RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreCase(tt.in, now)
			if got == nil {
				t.Fatal("ScoreCase = nil")
			}
			if got.Points != tt.wantPoints {
				t.Errorf("points = %d, want %d", got.Points, tt.wantPoints)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("tier = %q, want %q", got.Tier, tt.wantTier)
			}
		})
	}
}

func TestScoreCaseZeroDenominator(t *testing.T) {
	now := time.Now()
	in := RiskInputs{
		TotalLoanAmount: dec("0"),
		PosValue:        dec("5000"),
		LastPaymentDate: ts(now),
	}
	got := ScoreCase(in, now)
	if got == nil {
		t.Fatal("ScoreCase = nil")
	}
	// Zero denominator contributes no outstanding points rather than failing.
	if got.Points != 0 {
		t.Errorf("points = %d, want 0", got.Points)
	}
}

func TestScoreCaseFuturePaymentDateClamped(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	in := RiskInputs{
		LastPaymentDate: ts(now.AddDate(0, 0, 5)),
	}
	got := ScoreCase(in, now)
	if got == nil {
		t.Fatal("ScoreCase = nil")
	}
	if got.Points != 0 {
		t.Errorf("future payment date scored %d points, want 0", got.Points)
	}
}
