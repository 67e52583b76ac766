package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"backend/internal/models"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func googleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleLogin redirects to Google's consent page. The session id doubles
// as the state parameter.
func GoogleLogin(clientID, clientSecret, redirectURL string) gin.HandlerFunc {
	conf := googleOAuthConfig(clientID, clientSecret, redirectURL)
	return func(c *gin.Context) {
		state := c.GetString("sessionId")
		if state == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		c.Redirect(http.StatusFound, conf.AuthCodeURL(state))
	}
}

// GoogleCallback exchanges the authorization code, upserts the account and
// issues tokens. Accounts created here carry no password hash; local login
// stays unavailable until the user completes a password reset.
func GoogleCallback(db *mongo.Database, clientID, clientSecret, redirectURL, jwtSecret string, accessTTL, refreshTTL time.Duration) gin.HandlerFunc {
	conf := googleOAuthConfig(clientID, clientSecret, redirectURL)
	return func(c *gin.Context) {
		if c.Query("state") != c.GetString("sessionId") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
			return
		}

		code := strings.TrimSpace(c.Query("code"))
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		token, err := conf.Exchange(ctx, code)
		if err != nil {
			log.Println("[OAUTH] [ERROR] code exchange failed:", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "oauth exchange failed"})
			return
		}

		info, err := fetchGoogleUserInfo(ctx, conf, token)
		if err != nil {
			log.Println("[OAUTH] [ERROR] userinfo fetch failed:", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "oauth userinfo failed"})
			return
		}

		email := strings.ToLower(strings.TrimSpace(info.Email))
		if email == "" {
			c.JSON(http.StatusBadGateway, gin.H{"error": "oauth account has no email"})
			return
		}

		user, err := upsertOAuthUser(ctx, db, email, info)
		if err != nil {
			log.Println("[OAUTH] [ERROR] account upsert failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if user.IsBlocked {
			c.JSON(http.StatusForbidden, gin.H{"error": "account is blocked"})
			return
		}

		tokens, err := issueTokens(c, db, *user, jwtSecret, accessTTL, refreshTTL)
		if err != nil {
			log.Println("[OAUTH] [ERROR] token generation failed:", err)
			return
		}

		log.Println("[OAUTH] [INFO] google login succeeded:", email)
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
			"user": LoginResponseUser{
				ID:       user.ID.Hex(),
				FullName: user.FullName,
				Email:    user.Email,
			},
		})
	}
}

func fetchGoogleUserInfo(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*googleUserInfo, error) {
	client := conf.Client(ctx, token)

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func upsertOAuthUser(ctx context.Context, db *mongo.Database, email string, info *googleUserInfo) (*models.User, error) {
	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == nil {
		return &user, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := time.Now()
	user = models.User{
		FullName:  strings.TrimSpace(info.Name),
		Email:     email,
		PhotoPath: info.Picture,
		Addresses: []models.Address{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}

	log.Println("[OAUTH] [INFO] account created:", email)
	return &user, nil
}
