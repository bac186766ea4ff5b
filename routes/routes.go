package routes

import (
	"account-service/controllers"
	"account-service/middleware"
	"account-service/services"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Account *controllers.AccountController
	Ledger  *controllers.LedgerController
	Orders  *controllers.OrderController
	Product *controllers.ProductController
	Webhook *controllers.WebhookController
}

func RegisterRoutes(r *gin.Engine, c *Controllers, tokenService *services.TokenService) {
	// Public account routes, rate limited per client IP
	public := r.Group("/")
	public.Use(middleware.RateLimitMiddleware())
	{
		public.POST("/api/users", c.Account.CreateUser)
		public.POST("/auth/login", c.Account.Login)
		public.POST("/api/consume", c.Ledger.Consume)
	}

	r.GET("/api/products", c.Product.GetProducts)
	r.POST("/webhooks/stripe", c.Webhook.StripeWebhook)

	auth := r.Group("/api")
	auth.Use(middleware.RequireAuth(tokenService))
	{
		auth.POST("/orders", c.Orders.CreateOrder)
		auth.GET("/orders", c.Orders.GetOrders)
		auth.GET("/users/:id/balance", c.Ledger.GetBalance)
		auth.GET("/users/:id/ledger", c.Ledger.GetHistory)
		auth.POST("/products", middleware.RequireRole("admin"), c.Product.CreateProduct)
	}
}
