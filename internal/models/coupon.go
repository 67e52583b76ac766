package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon is an admin-managed discount document. Redemption is currently
// disabled: the pricing package's offer stubs never select a coupon, so
// these documents only surface in the admin panel.
type Coupon struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code        string             `bson:"code" json:"code"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Discount    float64            `bson:"discount" json:"discount"`
	IsPercent   bool               `bson:"isPercent" json:"isPercent"`
	MinAmount   float64            `bson:"minAmount" json:"minAmount"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	ExpiresAt   *time.Time         `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
