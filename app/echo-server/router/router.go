package router

import (
	"farmDirect/business/policy"
	"farmDirect/internal/middleware"
	"farmDirect/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupAuthRoutes(api *echo.Group, handler *rest.UserHandler, authRequired echo.MiddlewareFunc) {
	auth := api.Group("/auth")

	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/logout", handler.Logout, authRequired)

	api.GET("/users/me", handler.Me, authRequired, middleware.Authorize(policy.ViewOwnProfile))
}

func SetupAdminRoutes(api *echo.Group, users *rest.UserHandler, dashboard *rest.DashboardHandler, authRequired echo.MiddlewareFunc) {
	admin := api.Group("/admin", authRequired)

	admin.GET("/summary", dashboard.AdminSummary, middleware.Authorize(policy.ViewAdminBoard))

	manage := middleware.Authorize(policy.ManageUsers)
	admin.GET("/users", users.GetAllUsers, manage)
	admin.GET("/users/:id", users.GetUserByID, manage)
	admin.PUT("/users/:id", users.UpdateUser, manage)
	admin.DELETE("/users/:id", users.DeleteUser, manage)
}

func SetupDashboardRoutes(api *echo.Group, handler *rest.DashboardHandler, authRequired echo.MiddlewareFunc) {
	api.GET("/dashboard", handler.FarmerDashboard, authRequired, middleware.Authorize(policy.ViewFarmerBoard))
}

func SetupAnalyticsRoutes(api *echo.Group, handler *rest.DashboardHandler, authRequired echo.MiddlewareFunc) {
	analytics := api.Group("/analytics", authRequired, middleware.Authorize(policy.ViewFarmerBoard))

	analytics.GET("/sales-summary", handler.SalesSummary)
	analytics.GET("/sales-trend", handler.SalesTrend)
	analytics.GET("/order-status", handler.OrderStatus)
	analytics.GET("/top-products", handler.TopProducts)
	analytics.GET("/category-sales", handler.CategorySales)
}

func SetupCategoryRoutes(api *echo.Group, handler *rest.CategoryHandler, authRequired echo.MiddlewareFunc) {
	categories := api.Group("/categories")
	manage := middleware.Authorize(policy.ManageCategories)

	categories.GET("", handler.GetAllCategories)
	categories.GET("/:id", handler.GetCategoryByID)
	categories.POST("", handler.CreateCategory, authRequired, manage)
	categories.PUT("/:id", handler.UpdateCategory, authRequired, manage)
	categories.DELETE("/:id", handler.DeleteCategory, authRequired, manage)
}

func SetupProductRoutes(api *echo.Group, handler *rest.ProductHandler, authRequired echo.MiddlewareFunc) {
	products := api.Group("/products")

	products.GET("", handler.GetAllProducts)
	products.GET("/my", handler.GetMyProducts, authRequired, middleware.Authorize(policy.ListOwnProducts))
	products.GET("/:id", handler.GetProductByID)
	products.POST("", handler.CreateProduct, authRequired, middleware.Authorize(policy.CreateProduct))
	products.PUT("/:id", handler.UpdateProduct, authRequired, middleware.Authorize(policy.UpdateProduct))
	products.PATCH("/:id/stock", handler.UpdateStock, authRequired, middleware.Authorize(policy.UpdateProductStock))
	products.DELETE("/:id", handler.DeleteProduct, authRequired, middleware.Authorize(policy.DeleteProduct))
}

func SetOrdersRoutes(api *echo.Group, handler *rest.OrdersHandler, authRequired echo.MiddlewareFunc) {
	orders := api.Group("/orders", authRequired)

	orders.POST("", handler.CreateOrder, middleware.Authorize(policy.CreateOrder))
	orders.GET("", handler.GetAllOrders, middleware.Authorize(policy.ListOrders))
	orders.GET("/:id", handler.GetOrderByID, middleware.Authorize(policy.ViewOrder))
	orders.PATCH("/:id/status", handler.UpdateOrderStatus, middleware.Authorize(policy.UpdateOrderStatus))
	orders.DELETE("/:id", handler.DeleteOrder, middleware.Authorize(policy.DeleteOrder))
}

// SetWebhookHandler registers the gateway callback. It carries no session;
// the body signature authenticates it.
func SetWebhookHandler(api *echo.Group, handler *rest.WebhookController) {
	api.POST("/payments/callback", handler.HandleWebhook)
}
