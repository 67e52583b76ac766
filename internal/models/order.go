package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a single line item within an order. PriceAtAddition captures
// the unit price at the moment the item entered the cart; pricing resolution
// prefers it over the product's current prices.
type OrderItem struct {
	ProductID       primitive.ObjectID `bson:"productId" json:"productId"`
	Name            string             `bson:"name" json:"name"`
	PriceAtAddition float64            `bson:"priceAtAddition" json:"priceAtAddition"`
	Discount        float64            `bson:"discount" json:"discount"`
	Quantity        int                `bson:"quantity" json:"quantity"`
}

// OrderAddress captures the delivery address snapshot for an order.
type OrderAddress struct {
	Title  string `bson:"title" json:"title"`
	Detail string `bson:"detail" json:"detail"`
	Note   string `bson:"note,omitempty" json:"note,omitempty"`
}

// Order defines the persisted order document. Subtotal, TotalDiscount and
// FinalTotal are computed server-side through the pricing package.
type Order struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        *primitive.ObjectID `bson:"userId" json:"userId"`
	Items         []OrderItem         `bson:"items" json:"items"`
	Subtotal      float64             `bson:"subtotal" json:"subtotal"`
	TotalDiscount float64             `bson:"totalDiscount" json:"totalDiscount"`
	FinalTotal    float64             `bson:"finalTotal" json:"finalTotal"`
	Address       OrderAddress        `bson:"address" json:"address"`
	PaymentMethod string              `bson:"paymentMethod" json:"paymentMethod"`
	Status        string              `bson:"status" json:"status"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}
