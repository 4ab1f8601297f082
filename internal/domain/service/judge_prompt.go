package service

import (
	"fmt"
	"strings"

	"github.com/bibbank/taxrisk/internal/domain/port"
)

const judgeSystemPrompt = `You are an expert tax fraud investigator with the Income Tax Department of India. ` +
	`You assess filings for under-reported revenue, shell company activity, cash layering and lifestyle ` +
	`inconsistent with declared income. You answer only with a single JSON object.`

const judgeResponseContract = `Respond with exactly one JSON object and nothing else:
{"risk_score": <number 0-100, 100 = certain fraud>, "rationale": "<one paragraph>", "red_flags": ["<short flag>", ...]}`

const vendorContext = `SPECIAL CONTEXT - SMALL VENDOR ANALYSIS:
This is a small or street vendor. Expected revenue is derived from the declared daily takings range.
Focus on front operation indicators (a small vendor used as a cash layering point),
lifestyle vs income discrepancies and cash transaction patterns.`

const judgeMaxTokens = 1024

// BuildJudgePrompt renders the profile, revenue estimate and features for an LLM judge.
// The output depends only on the input, so the same filing always produces the same prompt.
func BuildJudgePrompt(in ScoringInput) port.JudgeRequest {
	p := in.Profile
	var b strings.Builder

	if p.Category().IsSmallVendor() {
		b.WriteString(vendorContext)
		b.WriteString("\n\n")
	}

	b.WriteString("BUSINESS INFORMATION:\n")
	fmt.Fprintf(&b, "- Business ID: %s\n", p.BusinessID())
	fmt.Fprintf(&b, "- Business Type: %s\n", p.Category().Label())
	fmt.Fprintf(&b, "- Number of Outlets: %d\n", p.NumOutlets())
	if p.Location() != "" {
		fmt.Fprintf(&b, "- Location: %s\n", p.Location())
	}
	if declared, ok := p.DeclaredRevenue(); ok {
		fmt.Fprintf(&b, "- Declared Annual Revenue: %s\n", declared)
	} else {
		b.WriteString("- Declared Annual Revenue: not filed\n")
	}
	if daily, ok := p.DailyRevenueRange(); ok {
		fmt.Fprintf(&b, "- Daily Revenue Range: %s to %s over %d operating days\n", daily.Min(), daily.Max(), p.OperatingDaysPerYear())
	}
	if tax, ok := p.DeclaredTaxPaid(); ok {
		fmt.Fprintf(&b, "- Declared Tax Paid: %s\n", tax)
	}
	if n := p.NumEmployees(); n > 0 {
		fmt.Fprintf(&b, "- Number of Employees: %d\n", n)
	}
	if a := p.FloorAreaSqft(); a > 0 {
		fmt.Fprintf(&b, "- Floor Area: %.0f sq ft\n", a)
	}
	if y := p.YearsInOperation(); y > 0 {
		fmt.Fprintf(&b, "- Years in Operation: %d\n", y)
	}
	if ls, ok := p.Lifestyle(); ok {
		fmt.Fprintf(&b, "- Lifestyle Assets: %s\n- Lifestyle Annual Expenses: %s\n", ls.Assets, ls.Expenses)
	}

	b.WriteString("\nREVENUE EXPECTATION:\n")
	fmt.Fprintf(&b, "- Expected Annual Revenue: %s to %s (method: %s)\n",
		in.Estimate.Low(), in.Estimate.High(), in.Estimate.Method())
	if in.GapRatio != nil {
		fmt.Fprintf(&b, "- Declared / Expected Midpoint: %.3f\n", *in.GapRatio)
	}

	b.WriteString("\nRULE-BASED FINDINGS:\n")
	factors := in.Patterns.RiskFactors()
	if len(factors) == 0 {
		b.WriteString("- none\n")
	}
	for _, rf := range factors {
		fmt.Fprintf(&b, "- [%s, %.0f] %s: %s\n", rf.Severity, rf.Score, rf.Factor, rf.Description)
	}

	b.WriteString("\nDERIVED FEATURES:\n")
	for _, name := range in.Features.Names() {
		v, _ := in.Features.Get(name)
		fmt.Fprintf(&b, "- %s: %.4f\n", name, v)
	}

	b.WriteString("\n")
	b.WriteString(judgeResponseContract)

	return port.JudgeRequest{
		System:    judgeSystemPrompt,
		Prompt:    b.String(),
		MaxTokens: judgeMaxTokens,
	}
}
