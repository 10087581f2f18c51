package handlers

import (
	"errors"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	config "github.com/kelvinmwangi/fundilink/configs"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
	"github.com/kelvinmwangi/fundilink/notifications"
	"github.com/kelvinmwangi/fundilink/payments"
	"github.com/kelvinmwangi/fundilink/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateBookingRequest struct {
	AvailabilitySlotID string `json:"availability_slot_id" validate:"required,uuid"`
	ServiceAddress     string `json:"service_address,omitempty"`
	CustomerNotes      string `json:"customer_notes,omitempty"`
	UseCredit          bool   `json:"use_credit,omitempty"`
	PaymentProvider    string `json:"payment_provider,omitempty"`
	MpesaPhoneNumber   string `json:"mpesa_phone_number,omitempty"`
}

func CreateBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	customerID, _ := uuid.Parse(claims["user_id"].(string))

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	slotID, _ := uuid.Parse(req.AvailabilitySlotID)

	var slot models.AvailabilitySlot
	if err := database.DB.Preload("Service").First(&slot, "id = ?", slotID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability slot not found"})
	}
	if slot.Service.ID == uuid.Nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability slot has no service attached"})
	}

	var customer models.User
	if err := database.DB.First(&customer, "id = ?", customerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Customer not found"})
	}

	serviceAddress := req.ServiceAddress
	if serviceAddress == "" {
		if customer.DefaultAddress == nil || *customer.DefaultAddress == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A service address is required; provide one or set a default address on your profile."})
		}
		serviceAddress = *customer.DefaultAddress
	}

	var customerNotes *string
	if req.CustomerNotes != "" {
		customerNotes = &req.CustomerNotes
	}

	if req.UseCredit {
		if customer.CreditBalance >= slot.Service.PricePerVisit {
			var confirmedBooking models.Booking
			err := database.DB.Transaction(func(tx *gorm.DB) error {
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, "id = ?", slotID).Error; err != nil {
					return err
				}

				if slot.Status == "full" || slot.Status == "booked" || slot.CurrentBookings >= slot.MaxBookings {
					return errors.New("this slot is full or no longer available")
				}
				slot.CurrentBookings++
				if slot.CurrentBookings >= slot.MaxBookings {
					if slot.MaxBookings > 1 {
						slot.Status = "full"
					} else {
						slot.Status = "booked"
					}
				}

				customer.CreditBalance -= slot.Service.PricePerVisit
				if err := tx.Save(&customer).Error; err != nil {
					return err
				}
				if err := tx.Save(&slot).Error; err != nil {
					return err
				}

				confirmedBooking = models.Booking{
					CustomerID: customerID, ProviderID: slot.ProviderID, AvailabilitySlotID: slot.ID,
					Price:          slot.Service.PricePerVisit,
					Currency:       slot.Service.Currency,
					ServiceAddress: serviceAddress,
					CustomerNotes:  customerNotes,
					Status:         "confirmed",
				}
				if err := tx.Create(&confirmedBooking).Error; err != nil {
					return err
				}

				payment := models.Payment{
					BookingID: &confirmedBooking.ID,
					Amount:    confirmedBooking.Price,
					Currency:  slot.Service.Currency,
					Provider:  "credit",
					Status:    "succeeded",
				}
				if err := tx.Create(&payment).Error; err != nil {
					return err
				}

				go func() {
					if err := tx.Preload("Customer").Preload("Provider").First(&confirmedBooking).Error; err == nil {
						notifications.SendEmail(confirmedBooking.Customer.FullName, confirmedBooking.Customer.Email, "Your Booking is Confirmed!", "<h1>Booking Confirmed</h1><p>Your visit has been successfully booked using your credit balance.</p>")
						notifications.SendEmail(confirmedBooking.Provider.FullName, confirmedBooking.Provider.Email, "You Have a New Booking!", "<h1>New Booking</h1><p>A customer has booked a visit with you using their credit.</p>")
					}
				}()
				return nil
			})
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process credit payment: " + err.Error()})
			}

			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"message": "Booking confirmed successfully using your credit balance.",
				"booking": confirmedBooking,
			})
		} else {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Insufficient credit balance to make this purchase."})
		}
	}

	var price = slot.Service.PricePerVisit
	var currency = slot.Service.Currency

	if req.PaymentProvider == "mpesa" {
		if currency != "KES" {
			kesPrice, err := services.ConvertUSDToKES(price)
			if err != nil {
				log.Printf("🔥 Currency conversion failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not perform currency conversion."})
			}
			price = math.Round(kesPrice)
			currency = "KES"
		}
	}

	var booking models.Booking
	var payment models.Payment
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, "id = ?", slotID).Error; err != nil {
			return err
		}

		if slot.Status == "full" || slot.Status == "booked" || slot.CurrentBookings >= slot.MaxBookings {
			return errors.New("this slot is full or no longer available")
		}
		slot.CurrentBookings++
		if slot.CurrentBookings >= slot.MaxBookings {
			if slot.MaxBookings > 1 {
				slot.Status = "full"
			} else {
				slot.Status = "booked"
			}
		}
		if err := tx.Save(&slot).Error; err != nil {
			return err
		}

		booking = models.Booking{
			CustomerID: customerID, ProviderID: slot.ProviderID, AvailabilitySlotID: slot.ID,
			Price: slot.Service.PricePerVisit, Currency: slot.Service.Currency,
			ServiceAddress: serviceAddress, CustomerNotes: customerNotes,
			Status: "pending_payment",
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		payment = models.Payment{
			BookingID: &booking.ID, Amount: price, Currency: currency,
			Provider: req.PaymentProvider, Status: "pending",
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.PaymentProvider == "mpesa" {
		if req.MpesaPhoneNumber == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "M-Pesa phone number is required"})
		}

		stkResponse, err := payments.InitiateMpesaSTKPush(price, req.MpesaPhoneNumber, payment.ID.String())
		if err != nil {
			log.Printf("🔥 CRITICAL: InitiateMpesaSTKPush failed: %v", err)
			if err.Error() == "invalid M-Pesa phone number format" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Payment could not be initiated, please try again."})
		}

		payment.MerchantRequestID = &stkResponse.Response.MerchantRequestID
		database.DB.Save(&payment)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"booking":          booking,
			"customer_message": stkResponse.Response.CustomerMessage,
		})
	}

	if req.PaymentProvider == "paypal" {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": booking, "payment_id": payment.ID})
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment provider specified for external payment"})
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func CreateReview(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	customerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var newReview models.Review
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			return errors.New("booking not found")
		}
		if booking.CustomerID != customerID {
			return errors.New("you are not the customer for this booking")
		}
		if booking.Status != "completed" {
			return errors.New("reviews can only be submitted for completed bookings")
		}

		var existingReview models.Review
		if err := tx.Where("booking_id = ?", bookingID).First(&existingReview).Error; err == nil {
			return errors.New("a review for this booking has already been submitted")
		}

		newReview = models.Review{
			BookingID:  booking.ID,
			CustomerID: customerID,
			ProviderID: booking.ProviderID,
			Rating:     req.Rating,
			Comment:    req.Comment,
		}
		if err := tx.Create(&newReview).Error; err != nil {
			return err
		}

		var result struct {
			Avg float64
		}
		tx.Model(&models.Review{}).Where("provider_id = ?", booking.ProviderID).Select("avg(rating) as avg").Scan(&result)

		if err := tx.Model(&models.Provider{}).Where("user_id = ?", booking.ProviderID).Update("avg_rating", result.Avg).Error; err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(newReview)
}

func MarkBookingAsComplete(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var booking models.Booking
	if err := database.DB.
		Preload("AvailabilitySlot.Service").
		Preload("Customer").
		Preload("Provider").
		First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}

	if booking.ProviderID != providerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not the provider for this booking"})
	}
	if booking.Status != "confirmed" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only confirmed bookings can be marked as complete"})
	}
	if booking.AvailabilitySlot.EndTime.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot mark a visit as complete before it has ended"})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		booking.Status = "completed"
		if err := tx.Save(&booking).Error; err != nil {
			return err
		}

		commissionRate, _ := strconv.ParseFloat(config.Config("PLATFORM_COMMISSION_RATE"), 64)
		earnings := booking.Price * (1 - commissionRate)

		if err := tx.Model(&models.Provider{}).Where("user_id = ?", booking.ProviderID).Update("current_balance", gorm.Expr("current_balance + ?", earnings)).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete booking"})
	}

	go services.CompleteReferralIfApplicable(booking.CustomerID)
	go services.GenerateReceiptForBooking(booking)

	return c.JSON(fiber.Map{"message": "Booking marked as complete and earnings have been credited."})
}

type ProviderFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,min=10"`
}

func SubmitProviderFeedback(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var req ProviderFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}

	if booking.ProviderID != providerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not the provider for this booking"})
	}
	if booking.Status != "completed" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Feedback can only be submitted for completed bookings"})
	}

	booking.ProviderFeedback = &req.Feedback
	if err := database.DB.Save(&booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save feedback"})
	}

	return c.JSON(fiber.Map{"message": "Feedback submitted successfully"})
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func RequestRefund(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	customerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.Preload("AvailabilitySlot").First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CustomerID != customerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This is not your booking"})
	}
	if booking.AvailabilitySlot.StartTime.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot request a refund for a visit that has already started or finished"})
	}

	var payment models.Payment
	database.DB.First(&payment, "booking_id = ?", bookingID)

	refundStatus := "requested"
	payment.RefundStatus = &refundStatus
	payment.RefundReason = &req.Reason
	database.DB.Save(&payment)

	return c.JSON(fiber.Map{"message": "Refund request submitted successfully. An admin will review it shortly."})
}

type RescheduleRequest struct {
	NewStartTime string `json:"new_start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	NewEndTime   string `json:"new_end_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

func RequestReschedule(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	customerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var req RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.Preload("Provider").First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CustomerID != customerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This is not your booking"})
	}

	newStartTime, _ := time.Parse(time.RFC3339, req.NewStartTime)
	newEndTime, _ := time.Parse(time.RFC3339, req.NewEndTime)
	if newStartTime.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Proposed reschedule time cannot be in the past"})
	}

	booking.Status = "reschedule_requested"
	booking.ProposedStartTime = &newStartTime
	booking.ProposedEndTime = &newEndTime
	database.DB.Save(&booking)

	go notifications.SendEmail(booking.Provider.FullName, booking.Provider.Email, "Reschedule Request", "A customer has requested to reschedule a visit. Please log in to your dashboard to approve or deny the request.")

	return c.JSON(fiber.Map{"message": "Reschedule request sent to the provider."})
}

func GetMyBookings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	customerID, _ := uuid.Parse(claims["user_id"].(string))

	var bookings []models.Booking
	database.DB.
		Preload("Provider").
		Preload("AvailabilitySlot.Service").
		Where("customer_id = ?", customerID).
		Order("availability_slots.start_time desc").
		Joins("JOIN availability_slots on bookings.availability_slot_id = availability_slots.id").
		Find(&bookings)

	return c.JSON(bookings)
}

func GetMyProviderBookings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var bookings []models.Booking
	database.DB.
		Preload("Customer").
		Preload("AvailabilitySlot.Service").
		Where("provider_id = ?", providerID).
		Order("availability_slots.start_time desc").
		Joins("JOIN availability_slots on bookings.availability_slot_id = availability_slots.id").
		Find(&bookings)

	return c.JSON(bookings)
}
