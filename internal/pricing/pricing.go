// Package pricing normalizes the repo's heterogeneous priced shapes (cart
// items, order items, raw products) into one canonical breakdown of
// original price, discount and final price.
package pricing

import (
	"math"

	"backend/internal/models"
)

// ProductPrice is the nested product half of a line item.
type ProductPrice struct {
	SalePrice *float64
	Price     *float64
}

// LineItem is the canonical priced shape. Heterogeneous callers convert
// into it at the boundary; nil fields mean "absent". Resolution probes the
// fields in declaration order and the first present one wins.
type LineItem struct {
	PriceAtAddition *float64
	Product         *ProductPrice
	SalePrice       *float64
	Price           *float64
	Quantity        int
}

// Breakdown decomposes a unit price. RegularPrice, SalePrice and
// OfferDiscount alias the three canonical fields for callers that still
// expect the old names.
type Breakdown struct {
	OriginalPrice      float64 `json:"originalPrice"`
	Discount           float64 `json:"discount"`
	FinalPrice         float64 `json:"finalPrice"`
	DiscountPercentage float64 `json:"discountPercentage"`

	RegularPrice  float64 `json:"regularPrice"`
	SalePrice     float64 `json:"salePrice"`
	OfferDiscount float64 `json:"offerDiscount"`
}

// Total aggregates an order's line items.
type Total struct {
	Subtotal      float64 `json:"subtotal"`
	TotalDiscount float64 `json:"totalDiscount"`
	FinalTotal    float64 `json:"finalTotal"`
}

// DiscountFunc computes the per-unit discount for an item within an
// optional parent order.
type DiscountFunc func(item LineItem, order *models.Order) (float64, error)

// NoDiscount is the in-scope discount policy: offers and coupons are
// disabled, every item gets zero discount.
func NoDiscount(LineItem, *models.Order) (float64, error) {
	return 0, nil
}

// EligibleForOffers reports whether offer pricing applies to an item.
// Always false while offer logic is disabled.
func EligibleForOffers(LineItem) bool {
	return false
}

// AvailableOffers lists the offers applicable to an item. Always empty
// while offer logic is disabled.
func AvailableOffers(LineItem) []models.Coupon {
	return []models.Coupon{}
}

// extractors probe the line item's price fields in strict priority order.
var extractors = []func(LineItem) *float64{
	func(it LineItem) *float64 { return it.PriceAtAddition },
	func(it LineItem) *float64 {
		if it.Product == nil {
			return nil
		}
		return it.Product.SalePrice
	},
	func(it LineItem) *float64 {
		if it.Product == nil {
			return nil
		}
		return it.Product.Price
	},
	func(it LineItem) *float64 { return it.SalePrice },
	func(it LineItem) *float64 { return it.Price },
}

func resolveOriginalPrice(item LineItem) float64 {
	for _, extract := range extractors {
		if v := extract(item); v != nil {
			return *v
		}
	}
	return 0
}

// ComputeBreakdown prices a line item. Any error from the discount
// function collapses to the all-zero breakdown; the function never fails.
func ComputeBreakdown(item LineItem, order *models.Order, discountFn DiscountFunc) Breakdown {
	breakdown, err := computeBreakdown(item, order, discountFn)
	if err != nil {
		return Breakdown{}
	}
	return breakdown
}

func computeBreakdown(item LineItem, order *models.Order, discountFn DiscountFunc) (Breakdown, error) {
	original := resolveOriginalPrice(item)

	if discountFn == nil {
		discountFn = NoDiscount
	}
	discount, err := discountFn(item, order)
	if err != nil {
		return Breakdown{}, err
	}

	final := math.Max(0, original-discount)

	percentage := 0.0
	if original > 0 {
		percentage = discount / original * 100
	}

	return Breakdown{
		OriginalPrice:      original,
		Discount:           discount,
		FinalPrice:         final,
		DiscountPercentage: percentage,

		RegularPrice:  original,
		SalePrice:     final,
		OfferDiscount: discount,
	}, nil
}

// ComputeOrderTotal aggregates an order's items, weighting each breakdown
// by its quantity (absent quantity counts as 1). A nil order or an order
// without items yields the zero total.
func ComputeOrderTotal(order *models.Order, discountFn DiscountFunc) Total {
	if order == nil || len(order.Items) == 0 {
		return Total{}
	}

	var total Total
	for _, item := range order.Items {
		line := FromOrderItem(item)
		breakdown := ComputeBreakdown(line, order, discountFn)

		quantity := float64(item.Quantity)
		if item.Quantity <= 0 {
			quantity = 1
		}

		total.Subtotal += breakdown.OriginalPrice * quantity
		total.TotalDiscount += breakdown.Discount * quantity
	}

	total.FinalTotal = math.Max(0, total.Subtotal-total.TotalDiscount)
	return total
}

/* =========================
   BOUNDARY CONVERSIONS
========================= */

// FromOrderItem converts a persisted order item into the canonical shape.
func FromOrderItem(item models.OrderItem) LineItem {
	price := item.PriceAtAddition
	return LineItem{
		PriceAtAddition: &price,
		Quantity:        item.Quantity,
	}
}

// FromProduct converts a raw product into the canonical shape, exposing
// its sale price only while the sale is live.
func FromProduct(p models.Product) LineItem {
	item := LineItem{Quantity: 1}
	product := &ProductPrice{}

	if p.SaleEnabled && p.SalePrice > 0 && p.SalePrice < p.Price {
		sale := p.SalePrice
		product.SalePrice = &sale
	}
	price := p.Price
	product.Price = &price
	item.Product = product

	return item
}

// EffectiveUnitPrice is the price a unit of the product sells for right
// now, sale applied when live.
func EffectiveUnitPrice(p models.Product) float64 {
	return ComputeBreakdown(FromProduct(p), nil, NoDiscount).FinalPrice
}
