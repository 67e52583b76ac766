package verification

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// MongoAccounts backs AccountStore with the users collection.
type MongoAccounts struct {
	db *mongo.Database
}

func NewMongoAccounts(db *mongo.Database) *MongoAccounts {
	return &MongoAccounts{db: db}
}

func (s *MongoAccounts) EmailExists(ctx context.Context, email string) (bool, error) {
	count, err := s.db.Collection("users").CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoAccounts) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoAccounts) Create(ctx context.Context, user *models.User) error {
	res, err := s.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (s *MongoAccounts) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) (bool, error) {
	res, err := s.db.Collection("users").UpdateOne(ctx, bson.M{"email": email}, bson.M{
		"$set": bson.M{
			"passwordHash": passwordHash,
			"updatedAt":    time.Now(),
		},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
