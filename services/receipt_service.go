package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	config "github.com/kelvinmwangi/fundilink/configs"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
	"github.com/kelvinmwangi/fundilink/notifications"
)

// GenerateReceiptForBooking renders a PDF receipt for a completed booking,
// uploads it and emails the customer a download link. Meant to run in a
// goroutine after completion; failures are logged, never fatal.
func GenerateReceiptForBooking(booking models.Booking) {
	var existing models.Receipt
	if err := database.DB.Where("booking_id = ?", booking.ID).First(&existing).Error; err == nil {
		return
	}

	serviceName := booking.AvailabilitySlot.Service.Name
	receiptNumber := fmt.Sprintf("RCP-%d-%s", time.Now().Year(), strings.ToUpper(booking.ID.String()[:8]))

	htmlData, err := generateReceiptHTML(booking, serviceName, receiptNumber)
	if err != nil {
		log.Printf("🔥 Failed to generate receipt HTML: %v", err)
		return
	}

	pdfBytes, err := generatePDFFromHTML(htmlData)
	if err != nil {
		log.Printf("🔥 Failed to generate receipt PDF: %v", err)
		return
	}

	uploadURL, err := uploadReceiptToCloudinary(pdfBytes, booking.CustomerID.String())
	if err != nil {
		log.Printf("🔥 Failed to upload receipt to Cloudinary: %v", err)
		return
	}

	newReceipt := models.Receipt{
		BookingID:     booking.ID,
		CustomerID:    booking.CustomerID,
		ProviderID:    booking.ProviderID,
		ReceiptNumber: receiptNumber,
		Amount:        booking.Price,
		Currency:      booking.Currency,
		IssuedAt:      time.Now(),
		ReceiptURL:    uploadURL,
	}

	if err := database.DB.Create(&newReceipt).Error; err != nil {
		log.Printf("🔥 Failed to create receipt record for booking %s: %v", booking.ID, err)
		return
	}

	go notifications.SendEmail(
		booking.Customer.FullName,
		booking.Customer.Email,
		"Your FundiLink Receipt",
		fmt.Sprintf("<h1>Thank you!</h1><p>Your visit is complete. Receipt %s is available <a href='%s'>here</a>.</p>", receiptNumber, uploadURL),
	)
	log.Printf("✅ Generated receipt %s for booking %s.", receiptNumber, booking.ID)
}

func generateReceiptHTML(booking models.Booking, serviceName, receiptNumber string) (string, error) {
	tmpl, err := template.ParseFiles("templates/receipt.html")
	if err != nil {
		return "", err
	}

	data := struct {
		ReceiptNumber  string
		CustomerName   string
		ProviderName   string
		ServiceName    string
		ServiceAddress string
		Amount         string
		IssuedDate     string
	}{
		ReceiptNumber:  receiptNumber,
		CustomerName:   booking.Customer.FullName,
		ProviderName:   booking.Provider.FullName,
		ServiceName:    serviceName,
		ServiceAddress: booking.ServiceAddress,
		Amount:         fmt.Sprintf("%.2f %s", booking.Price, booking.Currency),
		IssuedDate:     time.Now().Format("January 2, 2006"),
	}

	var renderedHTML bytes.Buffer
	if err := tmpl.Execute(&renderedHTML, data); err != nil {
		return "", err
	}
	return renderedHTML.String(), nil
}

func generatePDFFromHTML(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadReceiptToCloudinary(fileBytes []byte, customerID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("receipts/%s_%s", customerID, uuid.New().String()),
		Folder:       "fundilink_receipts",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
