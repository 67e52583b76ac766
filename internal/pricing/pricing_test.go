package pricing

import (
	"errors"
	"reflect"
	"testing"

	"backend/internal/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestBreakdownPriceAtAdditionWins(t *testing.T) {
	item := LineItem{
		PriceAtAddition: floatPtr(500),
		Product:         &ProductPrice{SalePrice: floatPtr(80), Price: floatPtr(100)},
		SalePrice:       floatPtr(70),
		Price:           floatPtr(90),
	}

	got := ComputeBreakdown(item, nil, NoDiscount)
	want := Breakdown{
		OriginalPrice: 500, Discount: 0, FinalPrice: 500, DiscountPercentage: 0,
		RegularPrice: 500, SalePrice: 500, OfferDiscount: 0,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestBreakdownResolutionOrder(t *testing.T) {
	tests := []struct {
		name string
		item LineItem
		want float64
	}{
		{"product sale price", LineItem{Product: &ProductPrice{SalePrice: floatPtr(80), Price: floatPtr(100)}, SalePrice: floatPtr(70)}, 80},
		{"product regular price", LineItem{Product: &ProductPrice{Price: floatPtr(100)}, SalePrice: floatPtr(70)}, 100},
		{"item sale price", LineItem{SalePrice: floatPtr(70), Price: floatPtr(90)}, 70},
		{"item price", LineItem{Price: floatPtr(90)}, 90},
		{"nothing set", LineItem{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBreakdown(tt.item, nil, NoDiscount)
			if got.OriginalPrice != tt.want {
				t.Fatalf("resolved %v, want %v", got.OriginalPrice, tt.want)
			}
		})
	}
}

func TestBreakdownIsIdempotent(t *testing.T) {
	item := LineItem{PriceAtAddition: floatPtr(123.45)}

	first := ComputeBreakdown(item, nil, NoDiscount)
	second := ComputeBreakdown(item, nil, NoDiscount)
	if first != second {
		t.Fatalf("breakdown not idempotent: %+v vs %+v", first, second)
	}
}

func TestBreakdownFinalPriceFlooredAtZero(t *testing.T) {
	over := func(LineItem, *models.Order) (float64, error) { return 150, nil }

	got := ComputeBreakdown(LineItem{Price: floatPtr(100)}, nil, over)
	if got.FinalPrice != 0 {
		t.Fatalf("expected final price floored at 0, got %v", got.FinalPrice)
	}
	if got.DiscountPercentage != 150 {
		t.Fatalf("expected discount percentage 150, got %v", got.DiscountPercentage)
	}
}

func TestBreakdownDiscountErrorCollapsesToZero(t *testing.T) {
	failing := func(LineItem, *models.Order) (float64, error) { return 0, errors.New("boom") }

	got := ComputeBreakdown(LineItem{Price: floatPtr(100)}, nil, failing)
	if got != (Breakdown{}) {
		t.Fatalf("expected all-zero breakdown on discount error, got %+v", got)
	}
}

func TestBreakdownLegacyAliases(t *testing.T) {
	ten := func(LineItem, *models.Order) (float64, error) { return 10, nil }

	got := ComputeBreakdown(LineItem{Price: floatPtr(100)}, nil, ten)
	if got.RegularPrice != got.OriginalPrice || got.SalePrice != got.FinalPrice || got.OfferDiscount != got.Discount {
		t.Fatalf("legacy aliases diverge from canonical fields: %+v", got)
	}
}

func TestOrderTotal(t *testing.T) {
	order := &models.Order{
		Items: []models.OrderItem{
			{PriceAtAddition: 100, Quantity: 2},
			{PriceAtAddition: 50, Quantity: 1},
		},
	}

	got := ComputeOrderTotal(order, NoDiscount)
	want := Total{Subtotal: 250, TotalDiscount: 0, FinalTotal: 250}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestOrderTotalDefaultsQuantityToOne(t *testing.T) {
	order := &models.Order{
		Items: []models.OrderItem{{PriceAtAddition: 40}},
	}

	got := ComputeOrderTotal(order, NoDiscount)
	if got.Subtotal != 40 || got.FinalTotal != 40 {
		t.Fatalf("expected quantity to default to 1, got %+v", got)
	}
}

func TestOrderTotalNilAndEmpty(t *testing.T) {
	if got := ComputeOrderTotal(nil, NoDiscount); got != (Total{}) {
		t.Fatalf("expected zero total for nil order, got %+v", got)
	}
	if got := ComputeOrderTotal(&models.Order{}, NoDiscount); got != (Total{}) {
		t.Fatalf("expected zero total for order without items, got %+v", got)
	}
}

func TestOffersDisabled(t *testing.T) {
	item := LineItem{Price: floatPtr(100)}

	if EligibleForOffers(item) {
		t.Fatal("offer eligibility must be disabled")
	}
	if offers := AvailableOffers(item); !reflect.DeepEqual(offers, []models.Coupon{}) {
		t.Fatalf("expected no available offers, got %+v", offers)
	}
}

func TestEffectiveUnitPrice(t *testing.T) {
	onSale := models.Product{Price: 100, SaleEnabled: true, SalePrice: 75}
	if got := EffectiveUnitPrice(onSale); got != 75 {
		t.Fatalf("expected sale price 75, got %v", got)
	}

	saleOff := models.Product{Price: 100, SaleEnabled: false, SalePrice: 75}
	if got := EffectiveUnitPrice(saleOff); got != 100 {
		t.Fatalf("expected regular price 100 when sale disabled, got %v", got)
	}

	badSale := models.Product{Price: 100, SaleEnabled: true, SalePrice: 120}
	if got := EffectiveUnitPrice(badSale); got != 100 {
		t.Fatalf("expected regular price 100 for sale price above price, got %v", got)
	}
}
