package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kelvinmwangi/fundilink/handlers"
	"github.com/kelvinmwangi/fundilink/middleware"
)

func BookingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", middleware.Protected())
	booking.Get("/me", handlers.GetMyBookings)
	booking.Post("", handlers.CreateBooking)
	booking.Get("/:bookingId/receipt", handlers.GetReceiptForBooking)
	booking.Post("/:bookingId/review", handlers.CreateReview)
	booking.Post("/:bookingId/request-refund", handlers.RequestRefund)
	booking.Post("/:bookingId/request-reschedule", handlers.RequestReschedule)

	providerBooking := api.Group("/provider/bookings", middleware.Protected(), middleware.ProviderRequired())
	providerBooking.Post("/:bookingId/complete", handlers.MarkBookingAsComplete)
	providerBooking.Post("/:bookingId/feedback", handlers.SubmitProviderFeedback)
}
