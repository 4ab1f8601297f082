package valueobject

import "fmt"

// ScorerGroup separates machine-learning scorers from LLM judges for aggregation.
type ScorerGroup struct {
	value string
}

var (
	ScorerGroupML = ScorerGroup{value: "ML"}
	ScorerGroupAI = ScorerGroup{value: "AI"}
)

// ScorerGroupFromString reconstructs a ScorerGroup from its string representation.
func ScorerGroupFromString(s string) (ScorerGroup, error) {
	switch s {
	case "ML":
		return ScorerGroupML, nil
	case "AI":
		return ScorerGroupAI, nil
	default:
		return ScorerGroup{}, fmt.Errorf("invalid scorer group: %s", s)
	}
}

func (g ScorerGroup) String() string {
	return g.value
}

// Rank orders groups for presentation: ML first.
func (g ScorerGroup) Rank() int {
	if g == ScorerGroupML {
		return 0
	}
	return 1
}

func (g ScorerGroup) IsZero() bool {
	return g.value == ""
}

func (g ScorerGroup) Equal(other ScorerGroup) bool {
	return g.value == other.value
}
