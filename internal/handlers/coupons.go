package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type CouponCreateRequest struct {
	Code      string     `json:"code" binding:"required"`
	Discount  float64    `json:"discount" binding:"required"`
	IsPercent bool       `json:"isPercent"`
	MinAmount float64    `json:"minAmount"`
	IsActive  *bool      `json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type CouponUpdateRequest struct {
	Discount  *float64   `json:"discount"`
	IsPercent *bool      `json:"isPercent"`
	MinAmount *float64   `json:"minAmount"`
	IsActive  *bool      `json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

/*
GET /api/coupons
*/
func GetAllCoupons(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("coupons").Find(ctx, bson.M{}, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		coupons := make([]models.Coupon, 0)
		if err := cursor.All(ctx, &coupons); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": coupons})
	}
}

/*
POST /api/coupons
- Aynı kod ile ikinci kupon eklenemez (unique index)
*/
func CreateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CouponCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		code := strings.ToUpper(strings.TrimSpace(req.Code))
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code required"})
			return
		}

		if req.Discount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "discount must be greater than zero"})
			return
		}
		if req.IsPercent && req.Discount > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "percent discount cannot exceed 100"})
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		coupon := models.Coupon{
			Code:      code,
			Discount:  req.Discount,
			IsPercent: req.IsPercent,
			MinAmount: req.MinAmount,
			IsActive:  isActive,
			ExpiresAt: req.ExpiresAt,
			CreatedAt: time.Now(),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("coupons").InsertOne(ctx, coupon)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "coupon code already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		coupon.ID = result.InsertedID.(primitive.ObjectID)

		c.JSON(http.StatusCreated, coupon)
	}
}

/*
PUT /api/coupons/:id
*/
func UpdateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req CouponUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		update := bson.M{}

		if req.Discount != nil {
			if *req.Discount <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "discount must be greater than zero"})
				return
			}
			update["discount"] = *req.Discount
		}
		if req.IsPercent != nil {
			update["isPercent"] = *req.IsPercent
		}
		if req.MinAmount != nil {
			update["minAmount"] = *req.MinAmount
		}
		if req.IsActive != nil {
			update["isActive"] = *req.IsActive
		}
		if req.ExpiresAt != nil {
			update["expiresAt"] = *req.ExpiresAt
		}

		if len(update) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.Coupon
		err = db.Collection("coupons").
			FindOneAndUpdate(
				ctx,
				bson.M{"_id": id},
				bson.M{"$set": update},
				options.FindOneAndUpdate().SetReturnDocument(options.After),
			).
			Decode(&updated)

		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

/*
DELETE /api/coupons/:id
*/
func DeleteCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("coupons").UpdateOne(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"isActive": false}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if result.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
