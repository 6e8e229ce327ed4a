package finance

import "github.com/talgya/holdco/internal/business"

// DistressLevel is the ordered balance-sheet health scale.
type DistressLevel int

const (
	DistressComfortable DistressLevel = iota
	DistressElevated
	DistressStressed
	DistressBreach
)

var distressNames = [...]string{"comfortable", "elevated", "stressed", "breach"}

func (d DistressLevel) String() string {
	if d < 0 || int(d) >= len(distressNames) {
		return "unknown"
	}
	return distressNames[d]
}

// MarshalText encodes the level by name.
func (d DistressLevel) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes a level name; unknown names decode as comfortable.
func (d *DistressLevel) UnmarshalText(b []byte) error {
	*d = DistressComfortable
	for i, n := range distressNames {
		if n == string(b) {
			*d = DistressLevel(i)
		}
	}
	return nil
}

// Leverage thresholds on net debt / EBITDA.
const (
	ElevatedLeverage = 2.5
	StressedLeverage = 3.5
	BreachLeverage   = 4.5
)

// BreachRoundsToRestructure is how many consecutive breach rounds force a
// restructuring.
const BreachRoundsToRestructure = 2

// NetDebt is total debt plus seller notes less cash.
func NetDebt(l *Ledger, list []*business.Business) int64 {
	return TotalDebt(l, list) + SellerNoteTotal(list) - l.Cash
}

// Leverage returns net debt / EBITDA. With no EBITDA, any net debt is
// unbounded leverage and none is zero.
func Leverage(netDebt, ebitda int64) float64 {
	if netDebt <= 0 {
		return 0
	}
	if ebitda <= 0 {
		return BreachLeverage * 10
	}
	return float64(netDebt) / float64(ebitda)
}

// CalculateDistress classifies leverage. Skipped payments are a breach
// regardless of leverage.
func CalculateDistress(leverage float64, paymentsSkipped bool) DistressLevel {
	switch {
	case paymentsSkipped || leverage >= BreachLeverage:
		return DistressBreach
	case leverage >= StressedLeverage:
		return DistressStressed
	case leverage >= ElevatedLeverage:
		return DistressElevated
	default:
		return DistressComfortable
	}
}

// RatePenalty is the interest surcharge for a distress level.
func RatePenalty(d DistressLevel) float64 {
	switch d {
	case DistressBreach:
		return 0.02
	case DistressStressed:
		return 0.01
	default:
		return 0
	}
}

// BlocksPrivilegedActions reports whether acquisitions, buybacks and
// distributions are frozen.
func BlocksPrivilegedActions(d DistressLevel) bool {
	return d == DistressBreach
}

// EvaluateCovenants advances the consecutive-breach counter and returns the
// escalation it demands, if any.
func EvaluateCovenants(l *Ledger, level DistressLevel) Trigger {
	if level != DistressBreach {
		l.CovenantBreachRounds = 0
		return TriggerNone
	}
	l.CovenantBreachRounds++
	if l.CovenantBreachRounds >= BreachRoundsToRestructure {
		return Escalate(l)
	}
	return TriggerNone
}

// RestructuringTerms describe what a forced restructuring does to the loan.
type RestructuringTerms struct {
	HaircutFraction float64
	TermExtension   int
	RateStep        float64
}

// DefaultRestructuring converts a quarter of the holdco loan to equity and
// pushes out the maturity.
var DefaultRestructuring = RestructuringTerms{HaircutFraction: 0.25, TermExtension: 3, RateStep: 0.01}

// Restructure applies terms to the ledger and marks restructuring as used.
// It returns the loan amount converted to equity.
func Restructure(l *Ledger, list []*business.Business, t RestructuringTerms) int64 {
	converted := int64(float64(l.HoldcoLoanBalance) * t.HaircutFraction)
	l.HoldcoLoanBalance -= converted
	if l.HoldcoLoanBalance > 0 {
		l.HoldcoLoanRoundsRemaining += t.TermExtension
		l.HoldcoLoanRate += t.RateStep
	}
	for _, b := range list {
		if b.IsOwned() && b.BankDebtBalance > 0 {
			b.BankDebtRoundsRemaining += t.TermExtension
		}
	}
	l.CovenantBreachRounds = 0
	l.HasRestructured = true
	l.RecomputeDebt(list)
	return converted
}
