package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	config "github.com/kelvinmwangi/fundilink/configs"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/handlers"
	"github.com/kelvinmwangi/fundilink/jobs"
	"github.com/kelvinmwangi/fundilink/messagestore"
	"github.com/kelvinmwangi/fundilink/notifications"
	"github.com/kelvinmwangi/fundilink/payments"
	"github.com/kelvinmwangi/fundilink/routes"
	"github.com/kelvinmwangi/fundilink/services"
	"github.com/kelvinmwangi/fundilink/websocket"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	storeDir := config.Config("MESSAGE_STORE_DIR")
	if storeDir == "" {
		storeDir = "./data/conversations"
	}
	store, err := messagestore.New(storeDir)
	if err != nil {
		log.Fatalf("🔥 Failed to open conversation store: %v", err)
	}
	handlers.MsgStore = store
	websocket.ConvStore = store

	go services.FetchRates()
	go payments.GetKcbAccessToken()
	c := cron.New()
	c.AddFunc("*/5 * * * *", jobs.CheckForMissedVisits)
	c.AddFunc("*/5 * * * *", jobs.SendVisitReminders)
	go c.Start()
	log.Println("✅ Cron jobs for visit tracking scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "FundiLink",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		PassLocalsToViews: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Nairobi",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to FundiLink API",
		})
	})

	routes.PublicRoutes(app)
	routes.ProfileRoutes(app)
	routes.AuthRoutes(app)
	routes.ProviderRoutes(app)
	routes.AdminRoutes(app)
	routes.BookingRoutes(app)
	routes.PaymentRoutes(app)
	routes.UploadRoutes(app)
	routes.MessagingRoutes(app)

	go websocket.RunHub()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	if err := app.Listen(":8080"); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
