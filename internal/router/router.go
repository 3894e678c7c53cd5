// Package router wires services, handlers and middleware into the gin engine.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "walletwise/internal/docs" // swagger docs
	"walletwise/internal/handlers"
	"walletwise/internal/logger"
	"walletwise/internal/middleware"
	"walletwise/internal/schedule"
	"walletwise/internal/services"
	"walletwise/internal/validator"
)

// Options configures the HTTP surface.
type Options struct {
	JWTSecret      string
	PipelineAPIKey string
	Notifier       services.Notifier
	Workers        int
	Location       *time.Location
	Swagger        bool
}

// New builds the full API engine on db.
func New(db *gorm.DB, opts Options) *gin.Engine {
	validator.Register()

	if opts.Workers < 1 {
		opts.Workers = 1
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	// Services
	budgetTracker := services.NewBudgetTracker()
	walletService := services.NewWalletService(db)
	transactionService := services.NewTransactionService(db, budgetTracker, opts.Notifier)
	budgetService := services.NewBudgetService(db)
	ruleService := services.NewRecurringRuleService(db)
	categoryService := services.NewCategoryService(db)
	auditService := services.NewAuditService(db)
	materializer := services.NewMaterializer(db, budgetTracker, opts.Notifier, opts.Workers, logger.Named("engine"))

	if err := categoryService.EnsureDefaults(); err != nil {
		logger.Get().Errorw("failed to seed default categories", "error", err)
	}

	// Handlers
	walletHandler := handlers.NewWalletHandler(walletService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	ruleHandler := handlers.NewRecurringRuleHandler(ruleService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	pipelineHandler := handlers.NewPipelineHandler(materializer, budgetService, func() time.Time {
		return schedule.Day(time.Now().In(loc))
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogging())
	r.Use(middleware.ErrorHandler())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Walletwise API is running"})
	})
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/recurring/run", pipelineHandler.RunRecurring)
	pipeline.POST("/budgets/recompute", pipelineHandler.RecomputeBudgets)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(opts.JWTSecret))

	wallets := protected.Group("/wallets")
	wallets.POST("", walletHandler.CreateWallet)
	wallets.GET("", walletHandler.GetUserWallets)
	wallets.GET("/:id", walletHandler.GetWallet)
	wallets.POST("/:id/members", walletHandler.AddMember)
	wallets.GET("/:id/members", walletHandler.GetMembers)
	wallets.POST("/:id/transactions", transactionHandler.CreateTransaction)
	wallets.GET("/:id/transactions", transactionHandler.GetWalletTransactions)
	wallets.PUT("/:id/budgets", budgetHandler.SetBudget)
	wallets.GET("/:id/budgets", budgetHandler.GetWalletBudgets)
	wallets.POST("/:id/recurring-rules", ruleHandler.CreateRecurringRule)
	wallets.GET("/:id/recurring-rules", ruleHandler.GetWalletRecurringRules)
	wallets.GET("/:id/categories", categoryHandler.GetWalletCategories)
	wallets.POST("/:id/categories", categoryHandler.CreateCategory)

	transactions := protected.Group("/transactions")
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	rules := protected.Group("/recurring-rules")
	rules.GET("/:id", ruleHandler.GetRecurringRule)
	rules.PATCH("/:id", ruleHandler.UpdateRecurringRule)
	rules.DELETE("/:id", ruleHandler.DeleteRecurringRule)

	categories := protected.Group("/categories")
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PATCH("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	return r
}
