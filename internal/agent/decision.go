package agent

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Decision is the model's verdict on a candidate pool.
type Decision struct {
	Action         string  // "buy" or "skip"
	AmountLamports uint64  // spend, capped by config
	TakeProfitPct  float64 // exit when price reaches entry * (1 + pct/100)
	StopLossPct    float64 // exit when price falls to entry * (1 - pct/100)
	Confidence     float64
	Reason         string
}

const decisionSchema = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "enum": ["buy", "skip"]},
    "amount_lamports": {"type": "number", "minimum": 0},
    "take_profit_pct": {"type": "number"},
    "stop_loss_pct": {"type": "number"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reason": {"type": "string"}
  }
}`

var decisionValidator = jsonschema.MustCompileString("decision.json", decisionSchema)

// ParseDecision extracts and validates a Decision from a model reply.
// The reply may wrap the JSON in a markdown fence or surrounding prose.
func ParseDecision(raw string, maxAmountLamports uint64) (*Decision, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	parsed := gjson.Parse(payload)
	if err := decisionValidator.Validate(parsed.Value()); err != nil {
		return nil, fmt.Errorf("decision schema: %w", err)
	}
	d := &Decision{
		Action:         parsed.Get("action").String(),
		AmountLamports: parsed.Get("amount_lamports").Uint(),
		TakeProfitPct:  parsed.Get("take_profit_pct").Float(),
		StopLossPct:    parsed.Get("stop_loss_pct").Float(),
		Confidence:     parsed.Get("confidence").Float(),
		Reason:         parsed.Get("reason").String(),
	}
	if d.Action == "skip" {
		return d, nil
	}
	if d.AmountLamports == 0 {
		return nil, fmt.Errorf("buy with zero amount")
	}
	if maxAmountLamports > 0 && d.AmountLamports > maxAmountLamports {
		d.AmountLamports = maxAmountLamports
	}
	if d.TakeProfitPct <= 0 {
		return nil, fmt.Errorf("take_profit_pct must be positive, got %v", d.TakeProfitPct)
	}
	if d.StopLossPct <= 0 || d.StopLossPct >= 100 {
		return nil, fmt.Errorf("stop_loss_pct must be in (0,100), got %v", d.StopLossPct)
	}
	return d, nil
}

// extractJSON pulls the first balanced JSON object out of the reply,
// tolerating ```json fences and leading prose.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			if esc {
				esc = false
			} else if c == '\\' {
				esc = true
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
