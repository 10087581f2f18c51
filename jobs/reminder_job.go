package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
	"github.com/kelvinmwangi/fundilink/notifications"
)

func SendVisitReminders() {
	log.Println("Running job: SendVisitReminders...")

	now := time.Now()
	lowerBound := now.Add(60 * time.Minute)
	upperBound := now.Add(65 * time.Minute)

	var upcomingBookings []models.Booking

	err := database.DB.
		Preload("Customer").
		Preload("Provider").
		Preload("AvailabilitySlot").
		Where("bookings.status = ? AND availability_slots.start_time BETWEEN ? AND ?", "confirmed", lowerBound, upperBound).
		Joins("JOIN availability_slots on bookings.availability_slot_id = availability_slots.id").
		Find(&upcomingBookings).Error

	if err != nil {
		log.Printf("Error checking for upcoming visits: %v", err)
		return
	}

	if len(upcomingBookings) == 0 {
		return
	}

	for _, booking := range upcomingBookings {
		log.Printf("Sending reminder for booking ID: %s", booking.ID)

		customerSubject := "Reminder: Your Service Visit Starts in 1 Hour!"
		customerBody := fmt.Sprintf(
			"<h1>Visit Reminder</h1><p>Hi there,</p><p>This is a friendly reminder that your provider is scheduled to arrive at %s.</p><p><b>Address:</b> %s</p>",
			booking.AvailabilitySlot.StartTime.Format(time.Kitchen),
			booking.ServiceAddress,
		)
		providerSubject := "Reminder: You Have a Visit in 1 Hour!"
		providerBody := fmt.Sprintf(
			"<h1>Visit Reminder</h1><p>Hi there,</p><p>You have a visit scheduled at %s.</p><p><b>Address:</b> %s</p>",
			booking.AvailabilitySlot.StartTime.Format(time.Kitchen),
			booking.ServiceAddress,
		)

		go notifications.SendEmail(booking.Customer.FullName, booking.Customer.Email, customerSubject, customerBody)
		go notifications.SendEmail(booking.Provider.FullName, booking.Provider.Email, providerSubject, providerBody)
	}
}
