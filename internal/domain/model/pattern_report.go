package model

import (
	"sort"
)

// Fraud pattern types checked by the rule-based detector.
const (
	PatternShellCompany    = "shell_company"
	PatternMoneyLaundering = "money_laundering"
	PatternBlackMoney      = "black_money"
	PatternCircularTrading = "circular_trading"
	PatternFrontOperation  = "front_operation"
)

// PatternMatchScore is the check score at which a pattern counts as matched.
const PatternMatchScore = 50.0

// Risk factor severities.
const (
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

var patternLabels = map[string]string{
	PatternShellCompany:    "Shell Company",
	PatternMoneyLaundering: "Money Laundering",
	PatternBlackMoney:      "Black Money",
	PatternCircularTrading: "Circular Trading",
	PatternFrontOperation:  "Front Operation",
}

// PatternLabel returns the display name of a pattern type.
func PatternLabel(patternType string) string {
	if l, ok := patternLabels[patternType]; ok {
		return l
	}
	return patternType
}

// PatternCheck is the outcome of one rule check. Score is on a 0-100 scale.
type PatternCheck struct {
	Type       string
	Score      float64
	Indicators []string
}

// Matched reports whether the check crossed PatternMatchScore.
func (c PatternCheck) Matched() bool {
	return c.Score >= PatternMatchScore
}

// RiskFactor is one explanatory finding on a 0-100 scale.
type RiskFactor struct {
	Factor      string
	Severity    string
	Description string
	Score       float64
}

// PatternReport holds every rule check run for a filing and the risk factors derived
// from them, highest score first.
type PatternReport struct {
	checks  []PatternCheck
	factors []RiskFactor
}

// NewPatternReport copies checks and factors and orders factors by descending score.
func NewPatternReport(checks []PatternCheck, factors []RiskFactor) PatternReport {
	r := PatternReport{
		checks:  make([]PatternCheck, len(checks)),
		factors: make([]RiskFactor, len(factors)),
	}
	for i, c := range checks {
		c.Indicators = append([]string(nil), c.Indicators...)
		r.checks[i] = c
	}
	copy(r.factors, factors)
	sort.SliceStable(r.factors, func(i, j int) bool {
		return r.factors[i].Score > r.factors[j].Score
	})
	return r
}

// Checks returns every check that ran, in detector order.
func (r PatternReport) Checks() []PatternCheck {
	return append([]PatternCheck(nil), r.checks...)
}

// Matched returns the checks that crossed PatternMatchScore.
func (r PatternReport) Matched() []PatternCheck {
	var out []PatternCheck
	for _, c := range r.checks {
		if c.Matched() {
			out = append(out, c)
		}
	}
	return out
}

// RiskFactors returns the findings, highest score first.
func (r PatternReport) RiskFactors() []RiskFactor {
	return append([]RiskFactor(nil), r.factors...)
}

// PatternScore is the mean score of the matched patterns, or 0 when none matched.
func (r PatternReport) PatternScore() float64 {
	matched := r.Matched()
	if len(matched) == 0 {
		return 0
	}
	var sum float64
	for _, c := range matched {
		sum += c.Score
	}
	return sum / float64(len(matched))
}
