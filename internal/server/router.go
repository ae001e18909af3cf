// Package server assembles the HTTP surface: middleware, handlers and routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"envelope/internal/handlers"
	"envelope/internal/middleware"
	"envelope/internal/services"
)

// Services are the business services behind the routes.
type Services struct {
	Accounts     services.AccountServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Budget       services.BudgetServicer
	Planned      services.PlannedServicer
}

// Options configures authentication and date handling.
type Options struct {
	JWTSecret      string
	OperatorAPIKey string
	Calendar       handlers.Calendar
}

// NewRouter builds the gin engine serving /api/v1.
func NewRouter(svc Services, opts Options) *gin.Engine {
	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Transactions, opts.Calendar)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories, opts.Calendar)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, opts.Calendar)
	budgetHandler := handlers.NewBudgetHandler(svc.Budget)
	plannedHandler := handlers.NewPlannedHandler(svc.Planned, opts.Calendar)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Operator routes
	operator := v1.Group("/operator")
	operator.Use(middleware.APIKeyMiddleware(opts.OperatorAPIKey))
	operator.POST("/planned/run", plannedHandler.RunAllDue)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(opts.JWTSecret))

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.POST("/:id/reconcile", accountHandler.ReconcileAccount)
	accounts.POST("/:id/archive", accountHandler.ArchiveAccount)
	accounts.GET("/:id/transactions", accountHandler.GetAccountTransactions)

	groups := protected.Group("/category-groups")
	groups.POST("", categoryHandler.CreateGroup)
	groups.GET("", categoryHandler.GetGroups)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.POST("/:id/allocate", categoryHandler.Allocate)
	categories.PUT("/:id/target", categoryHandler.SetTarget)
	categories.DELETE("/:id/target", categoryHandler.ClearTarget)
	categories.GET("/:id/target/progress", categoryHandler.GetTargetProgress)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	protected.POST("/transfers", transactionHandler.CreateTransfer)

	protected.GET("/budget/summary", budgetHandler.GetSummary)

	planned := protected.Group("/planned")
	planned.POST("", plannedHandler.CreatePlanned)
	planned.GET("", plannedHandler.GetPlanned)
	planned.GET("/due", plannedHandler.GetManualDue)
	planned.POST("/run", plannedHandler.RunDue)
	planned.POST("/notify", plannedHandler.NotifyManualDue)
	planned.GET("/:id", plannedHandler.GetPlannedByID)
	planned.DELETE("/:id", plannedHandler.DeletePlanned)
	planned.POST("/:id/pause", plannedHandler.PausePlanned)
	planned.POST("/:id/resume", plannedHandler.ResumePlanned)
	planned.POST("/:id/confirm", plannedHandler.ConfirmPlanned)
	planned.POST("/:id/skip", plannedHandler.SkipPlanned)

	return router
}
