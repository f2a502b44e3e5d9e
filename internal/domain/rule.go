package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCondition = errors.New("invalid condition")
	ErrInvalidOperator  = errors.New("invalid operator")
)

type Operator string

const (
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpEqual          Operator = "=="
)

func ParseOperator(input string) (Operator, error) {
	switch Operator(strings.TrimSpace(input)) {
	case OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual, OpEqual:
		return Operator(strings.TrimSpace(input)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, input)
	}
}

// Condition is the closed comparison variant behind the wire shape
// {"operator": ">", "value": 150}. Unknown operators are rejected at
// parse time, not at evaluation time.
type Condition struct {
	Operator Operator
	Value    decimal.Decimal
}

type conditionJSON struct {
	Operator *string          `json:"operator"`
	Value    *decimal.Decimal `json:"value"`
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw conditionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	if raw.Operator == nil || raw.Value == nil {
		return fmt.Errorf("%w: operator and value are required", ErrInvalidCondition)
	}
	op, err := ParseOperator(*raw.Operator)
	if err != nil {
		return err
	}
	c.Operator = op
	c.Value = *raw.Value
	return nil
}

func (c Condition) MarshalJSON() ([]byte, error) {
	op := string(c.Operator)
	value := c.Value
	return json.Marshal(conditionJSON{Operator: &op, Value: &value})
}

func (c Condition) Validate() error {
	if _, err := ParseOperator(string(c.Operator)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	return nil
}

func (c Condition) Satisfied(observed decimal.Decimal) bool {
	cmp := observed.Cmp(c.Value)
	switch c.Operator {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessOrEqual:
		return cmp <= 0
	case OpEqual:
		return cmp == 0
	default:
		return false
	}
}

type RuleStatus string

const (
	RuleActive    RuleStatus = "ACTIVE"
	RulePaused    RuleStatus = "PAUSED"
	RuleTriggered RuleStatus = "TRIGGERED"
)

type RuleSource string

const (
	RuleSourceUserManual RuleSource = "USER_MANUAL"
	RuleSourceAIAgent    RuleSource = "AI_AGENT"
)

type Frequency string

const (
	FrequencyOnce      Frequency = "ONCE"
	FrequencyRecurring Frequency = "RECURRING"
)

type RuleID = string

type Rule struct {
	ID        RuleID
	TenantID  TenantID
	ProfileID string
	Symbol    string
	AlertType string
	Source    RuleSource
	Condition Condition
	Status    RuleStatus
	Frequency Frequency
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RuleIdentity derives the content-addressed identity of a logical rule.
// Only semantically meaningful fields participate; timestamps and other
// incidental state are excluded so resubmitting the same rule always
// yields the same identity.
func RuleIdentity(tenant TenantID, profileID, symbol, alertType string, frequency Frequency, cond Condition) RuleID {
	canonical := strings.ToLower(strings.Join([]string{
		tenant.String(),
		profileID,
		symbol,
		alertType,
		string(frequency),
		string(cond.Operator),
		canonicalDecimal(cond.Value),
	}, "|"))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// canonicalDecimal strips trailing fraction zeros so 150, 150.0 and
// 150.00 all canonicalize identically.
func canonicalDecimal(value decimal.Decimal) string {
	s := value.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
