package storeapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rating mirrors the catalog API's nested rating object.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is the catalog API's product shape.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      Rating          `json:"rating"`
}

// CartItem is the wire shape shared by the cart and orders endpoints.
type CartItem struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// AuthResponse is returned by the signin and signup endpoints.
type AuthResponse struct {
	Token string      `json:"token"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	ID    json.Number `json:"id"`
}

// Order mirrors one row of the orders listing. total_price is in cents.
type Order struct {
	ID              int64      `json:"id"`
	Items           OrderItems `json:"order_items"`
	TotalPriceCents int64      `json:"total_price"`
	IsPaid          IntBool    `json:"is_paid"`
	IsDelivered     IntBool    `json:"is_delivered"`
}

// TotalPrice converts the cent amount into a decimal price.
func (o Order) TotalPrice() decimal.Decimal {
	return decimal.NewFromInt(o.TotalPriceCents).Div(decimal.NewFromInt(100))
}

// OrderItems decodes the order_items field once at the API boundary. The
// orders endpoint returns it as a JSON-encoded string rather than a nested
// array, so both encodings are accepted.
type OrderItems []CartItem

func (o *OrderItems) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*o = nil
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("unquoting order_items: %w", err)
		}
		if strings.TrimSpace(raw) == "" {
			*o = nil
			return nil
		}
		data = []byte(raw)
	}
	var items []CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decoding order_items: %w", err)
	}
	*o = items
	return nil
}

// IntBool maps the API's 0/1 status flags onto a bool.
type IntBool bool

func (b IntBool) Bool() bool {
	return bool(b)
}

func (b *IntBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "0", "false":
		*b = false
	case "1", "true":
		*b = true
	default:
		return fmt.Errorf("invalid bool flag %q", string(data))
	}
	return nil
}

func (b IntBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}
