package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/mailer"
	"backend/internal/middleware"
	"backend/internal/otp"
	"backend/internal/session"
	"backend/internal/verification"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("⚠️ product index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("⚠️ order index warning: %v", err)
	}
	if err := database.EnsureCouponIndexes(db); err != nil {
		log.Printf("⚠️ coupon index warning: %v", err)
	}
	if err := database.EnsureReviewIndexes(db); err != nil {
		log.Printf("⚠️ review index warning: %v", err)
	}

	sessions := session.NewManager()

	machine := verification.NewMachine(
		otp.NewGenerator(),
		mailer.NewSMTPSender(
			config.AppEnv.SMTPHost,
			config.AppEnv.SMTPPort,
			config.AppEnv.SMTPUser,
			config.AppEnv.SMTPPassword,
			config.AppEnv.MailFrom,
			config.AppEnv.MailFromName,
		),
		verification.NewMongoAccounts(db),
	).WithWindows(config.AppEnv.ResetOTPTTL, config.AppEnv.ResetResendWindow)

	r := gin.Default()
	r.Use(session.Middleware(sessions))

	auth := r.Group("/auth")
	{
		auth.POST("/signup", handlers.Signup(machine))
		auth.POST("/signup/verify-otp", handlers.VerifySignupOtp(machine))
		auth.POST("/signup/resend-otp", handlers.ResendSignupOtp(machine))

		auth.POST("/login", handlers.Login(
			db,
			config.AppEnv.JWTSecret,
			config.AppEnv.AccessTokenTTL,
			config.AppEnv.RefreshTokenTTL,
		))
		auth.GET("/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(db))
		auth.POST("/refresh", handlers.Refresh(
			db,
			config.AppEnv.JWTSecret,
			config.AppEnv.AccessTokenTTL,
			config.AppEnv.RefreshTokenTTL,
		))
		auth.POST("/logout", handlers.Logout(db, sessions))

		auth.POST("/forgot-password", handlers.ForgotPassword(machine))
		auth.POST("/forgot-password/verify-otp", handlers.VerifyForgotOtp(machine))
		auth.POST("/forgot-password/resend-otp", handlers.ResendForgotOtp(machine))
		auth.POST("/reset-password", handlers.ResetPassword(machine))

		auth.GET("/google", handlers.GoogleLogin(
			config.AppEnv.GoogleClientID,
			config.AppEnv.GoogleClientSecret,
			config.AppEnv.GoogleRedirectURL,
		))
		auth.GET("/google/callback", handlers.GoogleCallback(
			db,
			config.AppEnv.GoogleClientID,
			config.AppEnv.GoogleClientSecret,
			config.AppEnv.GoogleRedirectURL,
			config.AppEnv.JWTSecret,
			config.AppEnv.AccessTokenTTL,
			config.AppEnv.RefreshTokenTTL,
		))
	}

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/campaign", handlers.GetCampaignProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))
	r.GET("/products/:id/reviews", handlers.GetProductReviews(db))
	r.GET("/categories", handlers.GetCategories(db))
	r.POST("/orders", handlers.CreateOrder(db, config.AppEnv.JWTSecret))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.PUT("/profile", handlers.UpdateProfile(db))

		user.GET("/addresses", handlers.GetUserAddresses(db))
		user.POST("/addresses", handlers.CreateUserAddress(db))
		user.PUT("/addresses/:id", handlers.UpdateUserAddress(db))
		user.DELETE("/addresses/:id", handlers.DeleteUserAddress(db))

		user.GET("/favorites", handlers.GetUserFavorites(db))
		user.POST("/favorites", handlers.AddUserFavorite(db))
		user.DELETE("/favorites/:productId", handlers.DeleteUserFavorite(db))

		user.GET("/orders", handlers.GetMyOrders(db))
		user.POST("/products/:id/reviews", handlers.CreateReview(db))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true})
		})

		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.GET("/categories", handlers.GetAllCategories(db))
		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(db))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))

		admin.GET("/users", handlers.GetAllUsers(db))
		admin.PUT("/users/:id/block", handlers.BlockUser(db))
		admin.PUT("/users/:id/unblock", handlers.UnblockUser(db))

		admin.GET("/coupons", handlers.GetAllCoupons(db))
		admin.POST("/coupons", handlers.CreateCoupon(db))
		admin.PUT("/coupons/:id", handlers.UpdateCoupon(db))
		admin.DELETE("/coupons/:id", handlers.DeleteCoupon(db))

		admin.DELETE("/reviews/:id", handlers.DeleteReview(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
