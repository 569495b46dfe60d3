package enums

// OrderBucket groups orders by their status flags the way the orders screen
// presents them: new (unpaid), paid (awaiting delivery), delivered.
type OrderBucket string

const (
	OrderBucketNew       OrderBucket = "new"
	OrderBucketPaid      OrderBucket = "paid"
	OrderBucketDelivered OrderBucket = "delivered"
)

var validOrderBuckets = []OrderBucket{
	OrderBucketNew,
	OrderBucketPaid,
	OrderBucketDelivered,
}

// IsValid reports whether the value matches the canonical order bucket set.
func (b OrderBucket) IsValid() bool {
	for _, candidate := range validOrderBuckets {
		if candidate == b {
			return true
		}
	}
	return false
}
