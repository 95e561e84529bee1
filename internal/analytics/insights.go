package analytics

// Severity is the message category an insight is displayed with.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// InsightKind identifies one insight rule.
type InsightKind string

const (
	InsightLowSavings InsightKind = "low_savings"
	InsightOverspend  InsightKind = "overspend"
	InsightExcellent  InsightKind = "excellent_savings"
	InsightRichData   InsightKind = "rich_data"
)

type Insight struct {
	Kind     InsightKind `json:"kind"`
	Severity Severity    `json:"severity"`
}

// Signals are the inputs of the insight rules.
type Signals struct {
	SavingsRate                 float64
	AverageExpensePerDay        float64
	AverageIncomePerTransaction float64
	TransactionCount            int
}

// Insights evaluates each rule on its own; any combination may fire.
func Insights(s Signals) []Insight {
	out := make([]Insight, 0, 4)
	if s.SavingsRate < lowSavingsThreshold {
		out = append(out, Insight{Kind: InsightLowSavings, Severity: SeverityWarning})
	}
	if s.AverageExpensePerDay > s.AverageIncomePerTransaction {
		out = append(out, Insight{Kind: InsightOverspend, Severity: SeverityWarning})
	}
	if s.SavingsRate >= excellentThreshold {
		out = append(out, Insight{Kind: InsightExcellent, Severity: SeveritySuccess})
	}
	if s.TransactionCount > richDataThreshold {
		out = append(out, Insight{Kind: InsightRichData, Severity: SeverityInfo})
	}
	return out
}

// Tier buckets a savings rate for display badges.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
)

func TierFor(savingsRate float64) Tier {
	switch {
	case savingsRate >= excellentThreshold:
		return TierExcellent
	case savingsRate >= goodThreshold:
		return TierGood
	case savingsRate >= 0:
		return TierFair
	default:
		return TierPoor
	}
}
