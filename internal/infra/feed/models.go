package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type tickMessage struct {
	EventType  string          `json:"event_type"`
	Symbol     string          `json:"symbol"`
	Price      NullableDecimal `json:"price"`
	ObservedAt *time.Time      `json:"observed_at"`
}

// NullableDecimal accepts a JSON number, a quoted number, or null.
type NullableDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

func (n *NullableDecimal) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		n.Valid = false
		return nil
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		n.Valid = false
		return nil
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		if strings.TrimSpace(inner) == "" {
			n.Valid = false
			return nil
		}
		value, err := decimal.NewFromString(strings.TrimSpace(inner))
		if err != nil {
			return fmt.Errorf("decode decimal string: %w", err)
		}
		n.Decimal = value
		n.Valid = true
		return nil
	}

	var value decimal.Decimal
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	n.Decimal = value
	n.Valid = true
	return nil
}
