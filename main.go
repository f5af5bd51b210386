package main

import (
	"log"
	"os"

	"paper-trader/config"
	"paper-trader/handlers"
	"paper-trader/ledger"
	"paper-trader/middleware"
	"paper-trader/models"
	"paper-trader/quotes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded:", err)
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET not set")
	}
	if os.Getenv("ALPHA_VANTAGE_API_KEY") == "" {
		log.Fatal("ALPHA_VANTAGE_API_KEY not set")
	}

	// Initialize PostgreSQL and Redis connections.
	config.InitDB()
	config.InitRedis()

	sqlDB, err := config.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database instance: ", err)
	}
	defer sqlDB.Close()

	// Auto-migrate models.
	if err := config.DB.AutoMigrate(&models.User{}, &models.Holding{}, &models.Transaction{}); err != nil {
		log.Fatal("Failed to migrate models:", err)
	}

	quoteClient := quotes.NewClient(os.Getenv("ALPHA_VANTAGE_API_KEY"), config.Rdb)
	portfolioLedger := ledger.New(config.DB, quoteClient)
	h := handlers.New(portfolioLedger, quoteClient)

	router := gin.Default()

	// Public routes
	router.POST("/signup", handlers.Signup)
	router.POST("/login", handlers.Login)
	router.POST("/refresh", handlers.Refresh)

	// Protected routes
	auth := router.Group("/")
	auth.Use(middleware.JWTAuth())
	{
		auth.POST("/buy", h.Buy)
		auth.POST("/sell", h.Sell)
		auth.POST("/deposit", h.Deposit)
		auth.GET("/portfolio", h.GetPortfolio)
		auth.GET("/history", h.GetHistory)
		auth.GET("/quote/:symbol", h.GetQuote)
		auth.POST("/password", handlers.ChangePassword)
	}

	router.Run(":8080")
}
