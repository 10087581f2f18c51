package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kelvinmwangi/fundilink/handlers"
	"github.com/kelvinmwangi/fundilink/middleware"
)

func ProviderRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/providers", handlers.ListActiveProviders)
	api.Get("/providers/:providerId/availability", handlers.GetProviderAvailability)
	api.Get("/services", handlers.ListServices)
	api.Get("/providers/:providerId", handlers.GetProviderProfile)

	provider := api.Group("/provider", middleware.Protected())
	provider.Post("/apply", handlers.ApplyToBeAProvider)
	provider.Get("/bookings", handlers.GetMyProviderBookings)
	provider.Get("/earnings", handlers.GetProviderEarnings)
	provider.Get("/reviews/me", handlers.GetMyReviews)
	provider.Get("/analytics", handlers.GetProviderAnalytics)

	availability := provider.Group("/availability", middleware.ProviderRequired())
	availability.Post("", handlers.CreateAvailabilitySlot)
	availability.Get("/me", handlers.GetMyAvailability)
	availability.Delete("/:slotId", handlers.DeleteAvailabilitySlot)

	profile := provider.Group("/profile")
	profile.Get("/me", handlers.GetMyProviderProfile)
	profile.Put("/me", handlers.UpdateMyProviderProfile)

	providerServices := provider.Group("/services", middleware.ProviderRequired())
	providerServices.Post("", handlers.AddServiceToProfile)
	providerServices.Delete("/:serviceId", handlers.RemoveServiceFromProfile)

	reschedule := provider.Group("/reschedule-requests")
	reschedule.Get("", handlers.ListRescheduleRequests)
	reschedule.Post("/:bookingId/process", handlers.ProcessReschedule)

	payouts := provider.Group("/payouts", middleware.ProviderRequired())
	payouts.Post("/request", handlers.RequestPayout)
	payouts.Get("/requests", handlers.GetMyPayoutRequests)
}
