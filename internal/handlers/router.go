package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
	"cantina-system/internal/middleware"
)

// NewRouter wires every handler onto the gin engine. The same router is
// used by cmd/server and by the test suites.
func NewRouter(db *gorm.DB, redisClient *redis.Client, tokenTTL time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		MaxAge:           12 * time.Hour,
	}))

	authHandler := NewAuthHandler(db, tokenTTL)
	catalogHandler := NewCatalogHandler(db, redisClient)
	orderHandler := NewOrderHandler(db)
	lineHandler := NewLineItemHandler(db)
	paymentHandler := NewPaymentHandler(db)
	deliveryHandler := NewDeliveryHandler(db)
	loyaltyHandler := NewLoyaltyHandler(db)
	promotionHandler := NewPromotionHandler(db)
	referralHandler := NewReferralHandler(db)
	commentHandler := NewCommentHandler(db)

	public := r.Group("/api/v1")
	public.Use(middleware.RateLimit("60-M"))
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)
		public.GET("/menu", catalogHandler.ListMenuItems)
		public.GET("/menu/:id", catalogHandler.GetMenuItem)
		public.GET("/categories", catalogHandler.ListCategories)
	}

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.POST("/orders", orderHandler.CreateOrder)
		protected.GET("/orders", orderHandler.ListOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)
		protected.PATCH("/orders/:id", orderHandler.UpdateOrder)
		protected.POST("/orders/:id/cancel", orderHandler.CancelOrder)

		protected.POST("/orders/:id/lines", lineHandler.AddLine)
		protected.PATCH("/lines/:id", lineHandler.UpdateLine)
		protected.DELETE("/lines/:id", lineHandler.DeleteLine)

		protected.POST("/orders/:id/comments", commentHandler.CreateComment)
		protected.GET("/orders/:id/comments", commentHandler.ListComments)

		protected.POST("/payments", paymentHandler.CreatePayment)
		protected.GET("/payments/:id", paymentHandler.GetPayment)
		protected.POST("/payments/:id/validate", paymentHandler.ValidatePayment)
		protected.PATCH("/payments/:id", paymentHandler.UpdatePayment)

		protected.POST("/deliveries", deliveryHandler.CreateDelivery)
		protected.GET("/deliveries/:id", deliveryHandler.GetDelivery)
		protected.PATCH("/deliveries/:id/status", deliveryHandler.UpdateStatus)

		protected.POST("/promotions/validate", promotionHandler.ValidateCode)
		protected.POST("/promotions/reserve", promotionHandler.ReserveCode)
		protected.POST("/promotions/quote", promotionHandler.QuoteDiscount)

		protected.POST("/referrals", referralHandler.CreateReferral)
		protected.GET("/referrals", referralHandler.ListReferrals)
		protected.POST("/referrals/:id/reward", referralHandler.AttributeReward)

		protected.GET("/loyalty/me", loyaltyHandler.GetMyLedger)

		staff := protected.Group("")
		staff.Use(middleware.RequireRole(models.RoleEmployee, models.RoleAdmin))
		{
			staff.POST("/categories", catalogHandler.CreateCategory)
			staff.POST("/menu", catalogHandler.CreateMenuItem)
			staff.PATCH("/menu/:id", catalogHandler.UpdateMenuItem)
			staff.DELETE("/menu/:id", catalogHandler.DeleteMenuItem)

			staff.POST("/promotions", promotionHandler.CreatePromotion)
			staff.GET("/promotions", promotionHandler.ListPromotions)

			staff.GET("/loyalty/users/:id", loyaltyHandler.GetLedger)
			staff.GET("/statistics", loyaltyHandler.GlobalStatistics)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	return r
}
