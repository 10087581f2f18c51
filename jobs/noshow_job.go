package jobs

import (
	"log"
	"time"

	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
)

func CheckForMissedVisits() {
	log.Println("Running job: CheckForMissedVisits...")

	now := time.Now()
	upperBound := now.Add(-5 * time.Minute)
	lowerBound := now.Add(-15 * time.Minute)

	var missedBookings []models.Booking

	err := database.DB.
		Joins("JOIN availability_slots on bookings.availability_slot_id = availability_slots.id").
		Where("bookings.status = ? AND availability_slots.end_time BETWEEN ? AND ?", "confirmed", lowerBound, upperBound).
		Find(&missedBookings).Error

	if err != nil {
		log.Printf("Error checking for missed visits: %v", err)
		return
	}

	if len(missedBookings) == 0 {
		log.Println("No missed visits found.")
		return
	}

	for _, booking := range missedBookings {
		booking.Status = "missed"
		database.DB.Save(&booking)
	}

	log.Printf("Marked %d booking(s) as missed.", len(missedBookings))
}
