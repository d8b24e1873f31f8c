package models

// Item is a stored product or material.
type Item struct {
	Name string
}

// ItemSupplier is a purchasing record. Resource is nil when the purchase
// consumes no capacity or the resource was deleted.
type ItemSupplier struct {
	ID               int64
	Item             string
	Supplier         string
	Resource         *string
	ResourceQuantity float64
}

// ItemDistribution is a shipping record from an origin location.
type ItemDistribution struct {
	ID               int64
	Item             string
	Origin           string
	Resource         *string
	ResourceQuantity float64
}
