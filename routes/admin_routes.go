package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kelvinmwangi/fundilink/handlers"
	"github.com/kelvinmwangi/fundilink/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	admin.Get("/applications/pending", handlers.ListPendingApplications)
	admin.Put("/applications/:providerId", handlers.ManageApplication)
	admin.Get("/dashboard-analytics", handlers.GetDashboardAnalytics)

	admin.Get("/refund-requests", handlers.ListRefundRequests)
	admin.Post("/refund-requests/:paymentId/process", handlers.ProcessRefund)

	reports := admin.Group("/reports")
	reports.Get("/transactions", handlers.GenerateTransactionReport)

	services := admin.Group("/services")
	services.Post("", handlers.CreateService)
	services.Get("", handlers.ListServices)
	services.Put("/:serviceId", handlers.UpdateService)
	services.Delete("/:serviceId", handlers.DeleteService)

	users := admin.Group("/users")
	users.Get("", handlers.GetAllUsers)
	users.Put("/:userId/status", handlers.ToggleUserStatus)
	users.Delete("/:userId", handlers.AdminDeleteUser)

	admin.Get("/payout-requests", handlers.ListPayoutRequests)
	admin.Post("/payout-requests/:requestId/process", handlers.ProcessPayoutRequest)

	admin.Get("/bookings", handlers.AdminGetAllBookings)
	admin.Get("/payments", handlers.AdminGetPayments)

	reviews := admin.Group("/reviews")
	reviews.Get("", handlers.AdminGetReviews)
	reviews.Delete("/:reviewId", handlers.AdminDeleteReview)
}
