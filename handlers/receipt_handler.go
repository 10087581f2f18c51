package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
)

func GetMyReceipts(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	customerID, _ := uuid.Parse(claims["user_id"].(string))

	var receipts []models.Receipt
	database.DB.Preload("Provider").Where("customer_id = ?", customerID).Order("issued_at desc").Find(&receipts)

	return c.JSON(receipts)
}

func GetReceiptForBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var receipt models.Receipt
	if err := database.DB.First(&receipt, "booking_id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Receipt not found for this booking"})
	}

	if receipt.CustomerID != userID && receipt.ProviderID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This receipt does not belong to you"})
	}

	return c.JSON(receipt)
}
