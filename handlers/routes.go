package handlers

import (
	"bitbucket.org/mmdatafocus/clinic_backend/middlewares"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the API v1 surface.
func RegisterRoutes(r *gin.Engine) {

	v1 := r.Group("/api/v1")

	// Public
	v1.POST("/login", LoginHandler)
	v1.POST("/register", RegisterHandler)

	authed := v1.Group("")
	authed.Use(middlewares.RequireAuth())

	authed.POST("/change-password", ChangePasswordHandler)

	// Self-service storefront
	authed.POST("/shop/orders", CreateShopOrderHandler)

	// Scheduling
	authed.GET("/appointments/slots", AvailableSlotsHandler)
	authed.GET("/appointments/availability", CheckAvailabilityHandler)
	authed.GET("/appointments", ListAppointmentsHandler)
	authed.GET("/appointments/:id", GetAppointmentHandler)
	authed.POST("/appointments", CreateAppointmentHandler)
	authed.PUT("/appointments/:id", UpdateAppointmentHandler)
	authed.DELETE("/appointments/:id", DeleteAppointmentHandler)
	authed.POST("/appointments/:id/confirm", ConfirmAppointmentHandler())
	authed.POST("/appointments/:id/complete", CompleteAppointmentHandler())
	authed.POST("/appointments/:id/cancel", CancelAppointmentHandler())
	authed.POST("/appointments/:id/no-show", MarkNoShowAppointmentHandler())

	// Pets
	authed.GET("/pets", ListPetsHandler)
	authed.GET("/pets/:id", GetPetHandler)
	authed.POST("/pets", CreatePetHandler)
	authed.PUT("/pets/:id", UpdatePetHandler)
	authed.DELETE("/pets/:id", DeletePetHandler)

	// Staff-only management surface
	staff := authed.Group("")
	staff.Use(middlewares.RequireRole("admin", "veterinarian", "receptionist"))

	staff.GET("/users", ListUsersHandler)
	staff.GET("/users/veterinarians", ListVeterinariansHandler)
	staff.GET("/users/:id", GetUserHandler)
	staff.PUT("/users/:id", UpdateUserHandler)
	staff.DELETE("/users/:id", DeleteUserHandler)

	staff.GET("/products", ListProductsHandler)
	staff.GET("/products/:id", GetProductHandler)
	staff.POST("/products", CreateProductHandler)
	staff.PUT("/products/:id", UpdateProductHandler)
	staff.DELETE("/products/:id", DeleteProductHandler)

	staff.POST("/products/:id/stock/add", AddStockHandler())
	staff.POST("/products/:id/stock/remove", RemoveStockHandler())
	staff.POST("/products/:id/stock/adjust", AdjustStockHandler)
	staff.POST("/products/:id/stock/damaged", MarkDamagedHandler())
	staff.POST("/products/:id/stock/expired", MarkExpiredHandler())
	staff.GET("/stock-movements", ListStockMovementsHandler)

	staff.GET("/invoices", ListInvoicesHandler)
	staff.GET("/invoices/:id", GetInvoiceHandler)
	staff.POST("/invoices", CreateInvoiceHandler)
	staff.PUT("/invoices/:id", UpdateInvoiceHandler)
	staff.POST("/invoices/:id/cancel", CancelInvoiceHandler)
	staff.POST("/invoices/mark-overdue", MarkOverdueInvoicesHandler)

	staff.GET("/payments", ListPaymentsHandler)
	staff.GET("/payments/:id", GetPaymentHandler)
	staff.POST("/payments", CreatePaymentHandler)
	staff.PUT("/payments/:id", UpdatePaymentHandler)
	staff.DELETE("/payments/:id", DeletePaymentHandler)
}
