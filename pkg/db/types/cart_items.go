package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CartLine is one product reference held in a cart.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartLines is persisted as a JSON array (jsonb on postgres, text on sqlite).
type CartLines []CartLine

func (c *CartLines) Scan(src any) error {
	if src == nil {
		*c = CartLines{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("CartLines: unsupported Scan type %T", src)
	}

	if len(raw) == 0 {
		*c = CartLines{}
		return nil
	}
	out := CartLines{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("CartLines: decode: %w", err)
	}
	*c = out
	return nil
}

func (c CartLines) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]CartLine(c))
	if err != nil {
		return nil, fmt.Errorf("CartLines: encode: %w", err)
	}
	return string(b), nil
}

// Clone returns an independent copy.
func (c CartLines) Clone() CartLines {
	out := make(CartLines, len(c))
	copy(out, c)
	return out
}
