package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
	"github.com/kelvinmwangi/fundilink/notifications"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ListPendingApplications(c *fiber.Ctx) error {
	var pendingProviders []models.Provider
	if err := database.DB.Preload("User").Where("status = ?", "pending").Find(&pendingProviders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(pendingProviders)
}

func ManageApplication(c *fiber.Ctx) error {
	type MgtRequest struct {
		Status string `json:"status" validate:"required,oneof=active rejected"`
	}

	var req MgtRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	providerUserID := c.Params("providerId")

	var providerApp models.Provider
	if err := database.DB.Where("user_id = ?", providerUserID).First(&providerApp).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Application not found"})
	}

	var user models.User
	if err := database.DB.Where("id = ?", providerUserID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Associated user not found"})
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start transaction"})
	}

	providerApp.Status = req.Status
	if err := tx.Save(&providerApp).Error; err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update application status"})
	}

	if req.Status == "active" {
		user.Role = "provider"
		if err := tx.Save(&user).Error; err != nil {
			tx.Rollback()
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user role"})
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Transaction commit failed"})
	}

	switch req.Status {
	case "active":
		go notifications.SendEmail(
			user.FullName,
			user.Email,
			"Your Provider Application has been Approved!",
			"<h1>Congratulations!</h1><p>Your application to become a service provider has been approved. You can now set your availability and start accepting bookings.</p>",
		)
	case "rejected":
		go notifications.SendEmail(
			user.FullName,
			user.Email,
			"Update on Your Provider Application",
			"<h1>Application Update</h1><p>We regret to inform you that after careful review, your provider application was not approved at this time.</p>",
		)
	}

	return c.JSON(fiber.Map{"message": "Application status updated successfully"})
}

type ServiceRequest struct {
	Name            string  `json:"name" validate:"required,min=2"`
	Category        string  `json:"category" validate:"required,min=2"`
	Description     string  `json:"description"`
	PricePerVisit   float64 `json:"price_per_visit" validate:"required,gt=0"`
	Currency        string  `json:"currency" validate:"required,iso4217"`
	DurationMinutes int     `json:"duration_minutes" validate:"omitempty,gt=0"`
}

func CreateService(c *fiber.Ctx) error {
	var req ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	service := models.Service{
		Name:          req.Name,
		Category:      req.Category,
		PricePerVisit: req.PricePerVisit,
		Currency:      req.Currency,
		IsActive:      true,
	}
	if req.Description != "" {
		service.Description = &req.Description
	}
	if req.DurationMinutes > 0 {
		service.DurationMinutes = req.DurationMinutes
	}
	if err := database.DB.Create(&service).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create service"})
	}

	return c.Status(fiber.StatusCreated).JSON(service)
}

func ListServices(c *fiber.Ctx) error {
	var services []models.Service
	query := database.DB
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	query.Find(&services)
	return c.JSON(services)
}

func UpdateService(c *fiber.Ctx) error {
	serviceID := c.Params("serviceId")
	var service models.Service
	if err := database.DB.Where("id = ?", serviceID).First(&service).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}

	var req ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	service.Name = req.Name
	service.Category = req.Category
	service.PricePerVisit = req.PricePerVisit
	service.Currency = req.Currency
	if req.Description != "" {
		service.Description = &req.Description
	}
	if req.DurationMinutes > 0 {
		service.DurationMinutes = req.DurationMinutes
	}
	database.DB.Save(&service)

	return c.JSON(service)
}

func DeleteService(c *fiber.Ctx) error {
	serviceID := c.Params("serviceId")
	result := database.DB.Delete(&models.Service{}, "id = ?", serviceID)

	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete service"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type DashboardAnalyticsResponse struct {
	TotalCustomers       int64            `json:"total_customers"`
	TotalActiveProviders int64            `json:"total_active_providers"`
	TotalRevenue         float64          `json:"total_revenue"`
	BookingsLast30Days   int64            `json:"bookings_last_30_days"`
	RecentBookings       []models.Booking `json:"recent_bookings"`
}

func GetDashboardAnalytics(c *fiber.Ctx) error {
	var response DashboardAnalyticsResponse
	var totalRevenue float64

	database.DB.Model(&models.User{}).Where("role = ?", "customer").Count(&response.TotalCustomers)

	database.DB.Model(&models.Provider{}).Where("status = ?", "active").Count(&response.TotalActiveProviders)

	database.DB.Model(&models.Payment{}).Where("status = ?", "succeeded").Select("COALESCE(SUM(amount), 0)").Row().Scan(&totalRevenue)
	response.TotalRevenue = totalRevenue

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	database.DB.Model(&models.Booking{}).Where("created_at > ?", thirtyDaysAgo).Count(&response.BookingsLast30Days)

	database.DB.Order("created_at desc").Limit(5).Preload("Customer").Preload("Provider").Find(&response.RecentBookings)

	return c.JSON(response)
}

func ListRefundRequests(c *fiber.Ctx) error {
	var payments []models.Payment
	database.DB.Preload("Booking.Customer").Where("refund_status = ?", "requested").Find(&payments)
	return c.JSON(payments)
}

func ProcessRefund(c *fiber.Ctx) error {
	paymentID := c.Params("paymentId")

	type ProcessRequest struct {
		Decision string `json:"decision" validate:"required,oneof=approve reject"`
	}
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var payment models.Payment
	if err := database.DB.Preload("Booking.Customer").First(&payment, "id = ?", paymentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment record not found"})
	}

	if req.Decision == "approve" {
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			approvedStatus := "approved"
			refundedStatus := "refunded"
			payment.RefundStatus = &approvedStatus
			payment.Status = refundedStatus
			if err := tx.Save(&payment).Error; err != nil {
				return err
			}

			var booking models.Booking
			if err := tx.First(&booking, "id = ?", payment.BookingID).Error; err != nil {
				return err
			}
			booking.Status = "cancelled"
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}

			var slot models.AvailabilitySlot
			if err := tx.First(&slot, "id = ?", booking.AvailabilitySlotID).Error; err != nil {
				return err
			}
			slot.Status = "available"
			if err := tx.Save(&slot).Error; err != nil {
				return err
			}

			if payment.Provider == "credit" {
				var customer models.User
				if err := tx.First(&customer, "id = ?", booking.CustomerID).Error; err != nil {
					return err
				}
				customer.CreditBalance += payment.Amount
				if err := tx.Save(&customer).Error; err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update internal records for refund"})
		}

		go notifications.SendEmail(payment.Booking.Customer.FullName, payment.Booking.Customer.Email, "Your Refund has been Processed", "<h1>Refund Processed</h1><p>Your refund request has been approved and processed by our team.</p>")

	} else {
		rejectedStatus := "rejected"
		payment.RefundStatus = &rejectedStatus
		database.DB.Save(&payment)

		go notifications.SendEmail(payment.Booking.Customer.FullName, payment.Booking.Customer.Email, "Update on Your Refund Request", "<h1>Refund Request Update</h1><p>Your refund request has been reviewed and was not approved.</p>")
	}

	return c.JSON(fiber.Map{"message": "Refund request processed successfully"})
}

func GenerateTransactionReport(c *fiber.Ctx) error {
	startDateStr := c.Query("start_date", time.Now().AddDate(0, -1, 0).Format("2006-01-02"))
	endDateStr := c.Query("end_date", time.Now().Format("2006-01-02"))

	startDate, err := time.Parse("2006-01-02", startDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date format. Use YYYY-MM-DD."})
	}
	endDate, err := time.Parse("2006-01-02", endDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date format. Use YYYY-MM-DD."})
	}
	endDate = endDate.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	var payments []models.Payment
	database.DB.
		Preload("Booking.Customer").
		Where("status = ? AND created_at BETWEEN ? AND ?", "succeeded", startDate, endDate).
		Order("created_at desc").
		Find(&payments)

	b := new(bytes.Buffer)
	w := csv.NewWriter(b)

	headers := []string{"Transaction ID", "Date", "Customer Name", "Amount", "Provider", "Type", "Reference ID"}
	if err := w.Write(headers); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV header"})
	}

	for _, p := range payments {
		var customerName, purchaseType, referenceID string
		if p.BookingID != nil {
			customerName = p.Booking.Customer.FullName
			purchaseType = "Service Visit"
			referenceID = p.BookingID.String()
		}

		txnID := ""
		if p.ProviderTxnID != nil {
			txnID = *p.ProviderTxnID
		}

		row := []string{
			txnID,
			p.CreatedAt.Format("2006-01-02 15:04"),
			customerName,
			fmt.Sprintf("%.2f", p.Amount),
			p.Provider,
			purchaseType,
			referenceID,
		}
		if err := w.Write(row); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV row"})
		}
	}
	w.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s_to_%s.csv\"", startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))

	return c.Send(b.Bytes())
}

type PayoutRequestBody struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func RequestPayout(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var req PayoutRequestBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var provider models.Provider
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&provider, "user_id = ?", providerID).Error; err != nil {
			return errors.New("provider profile not found")
		}
		if provider.CurrentBalance < req.Amount {
			return errors.New("insufficient balance for this payout request")
		}

		provider.CurrentBalance -= req.Amount
		if err := tx.Save(&provider).Error; err != nil {
			return err
		}

		payoutRequest := models.PayoutRequest{
			ProviderID:  providerID,
			Amount:      req.Amount,
			Status:      "pending",
			RequestedAt: time.Now(),
		}
		if err := tx.Create(&payoutRequest).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Payout request submitted successfully."})
}

func ListPayoutRequests(c *fiber.Ctx) error {
	var requests []models.PayoutRequest
	database.DB.Preload("Provider").Where("status = ?", "pending").Find(&requests)
	return c.JSON(requests)
}

func ProcessPayoutRequest(c *fiber.Ctx) error {
	requestID := c.Params("requestId")

	type ProcessRequest struct {
		Decision   string `json:"decision" validate:"required,oneof=complete reject"`
		AdminNotes string `json:"admin_notes"`
	}
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var payoutRequest models.PayoutRequest
	if err := database.DB.Preload("Provider").First(&payoutRequest, "id = ?", requestID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payout request not found"})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		payoutRequest.Status = req.Decision
		payoutRequest.AdminNotes = &req.AdminNotes
		payoutRequest.ProcessedAt = &now

		if err := tx.Save(&payoutRequest).Error; err != nil {
			return err
		}

		if req.Decision == "reject" {
			if err := tx.Model(&models.Provider{}).Where("user_id = ?", payoutRequest.ProviderID).Update("current_balance", gorm.Expr("current_balance + ?", payoutRequest.Amount)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payout request"})
	}

	provider := payoutRequest.Provider
	if req.Decision == "complete" {
		go notifications.SendEmail(
			provider.FullName,
			provider.Email,
			"Your Payout Has Been Processed",
			fmt.Sprintf("<h1>Payout Processed</h1><p>Hello %s,</p><p>Your payout request for the amount of $%.2f has been processed and sent by our team.</p>", provider.FullName, payoutRequest.Amount),
		)
	} else {
		go notifications.SendEmail(
			provider.FullName,
			provider.Email,
			"Update on Your Payout Request",
			fmt.Sprintf("<h1>Payout Request Update</h1><p>Hello %s,</p><p>Your payout request for the amount of $%.2f was rejected. The funds have been returned to your account balance.</p><p><b>Admin Notes:</b> %s</p>", provider.FullName, payoutRequest.Amount, req.AdminNotes),
		)
	}

	return c.JSON(fiber.Map{"message": "Payout request processed."})
}

func GetAllUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := strings.TrimSpace(c.Query("search"))
	offset := (page - 1) * limit

	var users []models.User
	var totalUsers int64

	query := database.DB.Model(&models.User{})
	countQuery := database.DB.Model(&models.User{})

	if search != "" {
		searchTerm := "%" + search + "%"
		query = query.Where("full_name ILIKE ? OR email ILIKE ?", searchTerm, searchTerm)
		countQuery = countQuery.Where("full_name ILIKE ? OR email ILIKE ?", searchTerm, searchTerm)
	}

	countQuery.Count(&totalUsers)
	query.Offset(offset).Limit(limit).Find(&users)

	return c.JSON(fiber.Map{
		"data": users,
		"meta": fiber.Map{
			"total_users":  totalUsers,
			"total_pages":  int(math.Ceil(float64(totalUsers) / float64(limit))),
			"current_page": page,
		},
	})
}

func ToggleUserStatus(c *fiber.Ctx) error {
	userID := c.Params("userId")
	type Request struct {
		IsActive bool `json:"is_active"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", userID).Update("is_active", req.IsActive).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"message": "User status updated successfully."})
}

func AdminGetAllBookings(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	status := c.Query("status")
	offset := (page - 1) * limit

	var bookings []models.Booking
	var totalBookings int64

	query := database.DB.Model(&models.Booking{})
	countQuery := database.DB.Model(&models.Booking{})

	if status != "" {
		query = query.Where("status = ?", status)
		countQuery = countQuery.Where("status = ?", status)
	}

	countQuery.Count(&totalBookings)
	query.Order("created_at desc").Offset(offset).Limit(limit).Preload("Customer").Preload("Provider").Find(&bookings)

	return c.JSON(fiber.Map{
		"data": bookings,
		"meta": fiber.Map{
			"total":     totalBookings,
			"page":      page,
			"last_page": int(math.Ceil(float64(totalBookings) / float64(limit))),
		},
	})
}

func AdminGetPayments(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	offset := (page - 1) * limit

	query := database.DB.Model(&models.Payment{})
	countQuery := database.DB.Model(&models.Payment{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
		countQuery = countQuery.Where("status = ?", status)
	}
	if provider := c.Query("provider"); provider != "" {
		query = query.Where("provider = ?", provider)
		countQuery = countQuery.Where("provider = ?", provider)
	}

	var total int64
	var payments []models.Payment
	countQuery.Count(&total)
	query.Order("created_at desc").Offset(offset).Limit(limit).Preload("Booking.Customer").Find(&payments)

	return c.JSON(fiber.Map{
		"data": payments,
		"meta": fiber.Map{"total": total, "page": page, "last_page": int(math.Ceil(float64(total) / float64(limit)))},
	})
}

func AdminGetReviews(c *fiber.Ctx) error {
	var reviews []models.Review
	database.DB.Order("created_at desc").Preload("Customer").Preload("Provider").Find(&reviews)
	return c.JSON(reviews)
}

func AdminDeleteReview(c *fiber.Ctx) error {
	reviewID := c.Params("reviewId")

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, "id = ?", reviewID).Error; err != nil {
			return errors.New("review not found")
		}

		providerID := review.ProviderID

		if err := tx.Delete(&review).Error; err != nil {
			return err
		}

		var result struct{ Avg float64 }
		tx.Model(&models.Review{}).Where("provider_id = ?", providerID).Select("COALESCE(AVG(rating), 0) as avg").Scan(&result)

		if err := tx.Model(&models.Provider{}).Where("user_id = ?", providerID).Update("avg_rating", result.Avg).Error; err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func AdminDeleteUser(c *fiber.Ctx) error {
	userID := c.Params("userId")

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return errors.New("user not found")
		}

		if user.Role == "provider" {
			if err := tx.Where("provider_id = ?", userID).Delete(&models.Review{}).Error; err != nil {
				return err
			}
			if err := tx.Where("provider_id = ?", userID).Delete(&models.Booking{}).Error; err != nil {
				return err
			}
			if err := tx.Where("provider_id = ?", userID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
				return err
			}
			if err := tx.Where("provider_id = ?", userID).Delete(&models.PayoutRequest{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Provider{UserID: user.ID}).Association("Services").Clear(); err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&models.Provider{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&user).Error; err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
