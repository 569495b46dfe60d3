package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

// OrderView is the read model for one order, with the wire quirks already
// decoded and the cent total converted to a price.
type OrderView struct {
	ID          int64               `json:"id"`
	Items       []storeapi.CartItem `json:"items"`
	TotalPrice  decimal.Decimal     `json:"totalPrice"`
	IsPaid      bool                `json:"isPaid"`
	IsDelivered bool                `json:"isDelivered"`
	Bucket      enums.OrderBucket   `json:"bucket"`
}

// OrderList groups the user's orders by status bucket.
type OrderList struct {
	New       []OrderView `json:"new"`
	Paid      []OrderView `json:"paid"`
	Delivered []OrderView `json:"delivered"`
}

// NewCount returns how many orders are still unpaid, shown as the orders
// badge.
func (l OrderList) NewCount() int {
	return len(l.New)
}

func bucketFor(isPaid, isDelivered bool) enums.OrderBucket {
	switch {
	case isDelivered:
		return enums.OrderBucketDelivered
	case isPaid:
		return enums.OrderBucketPaid
	default:
		return enums.OrderBucketNew
	}
}

func toView(order storeapi.Order) OrderView {
	return OrderView{
		ID:          order.ID,
		Items:       order.Items,
		TotalPrice:  order.TotalPrice(),
		IsPaid:      order.IsPaid.Bool(),
		IsDelivered: order.IsDelivered.Bool(),
		Bucket:      bucketFor(order.IsPaid.Bool(), order.IsDelivered.Bool()),
	}
}
