package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const judgeResponseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["risk_score", "rationale"],
  "properties": {
    "risk_score": {"type": "number", "minimum": 0, "maximum": 100},
    "rationale": {"type": "string", "minLength": 1},
    "red_flags": {"type": "array", "items": {"type": "string"}}
  }
}`

var judgeResponseSchema = mustCompileJudgeSchema()

func mustCompileJudgeSchema() *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(judgeResponseSchemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("parse judge response schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("judge_response.json", doc); err != nil {
		panic(fmt.Sprintf("add judge response schema: %v", err))
	}
	sch, err := compiler.Compile("judge_response.json")
	if err != nil {
		panic(fmt.Sprintf("compile judge response schema: %v", err))
	}
	return sch
}

// JudgeVerdict is the structured part of an LLM judge reply.
type JudgeVerdict struct {
	RiskScore float64  `json:"risk_score"`
	Rationale string   `json:"rationale"`
	RedFlags  []string `json:"red_flags,omitempty"`
}

// ParseJudgeResponse extracts the JSON object from a model reply, which may be wrapped in
// prose or a code fence, and validates it. Every failure wraps ErrParse.
func ParseJudgeResponse(reply string) (JudgeVerdict, error) {
	obj, ok := extractJSONObject(reply)
	if !ok {
		return JudgeVerdict{}, fmt.Errorf("%w: no JSON object in reply", ErrParse)
	}

	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return JudgeVerdict{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := judgeResponseSchema.Validate(doc); err != nil {
		return JudgeVerdict{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var v JudgeVerdict
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return JudgeVerdict{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	v.Rationale = strings.TrimSpace(v.Rationale)
	if v.Rationale == "" {
		return JudgeVerdict{}, fmt.Errorf("%w: empty rationale", ErrParse)
	}
	return v, nil
}

// extractJSONObject returns the first balanced {...} span, skipping braces inside strings.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
