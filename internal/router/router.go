package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lethieuanh89/taphoa39-sub000/internal/cache"
	"github.com/lethieuanh89/taphoa39-sub000/internal/config"
	"github.com/lethieuanh89/taphoa39-sub000/internal/handler"
	"github.com/lethieuanh89/taphoa39-sub000/internal/middleware"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/service"
)

// Deps carries the shared components built in the composition root. The sync
// cron and the HTTP facade must act on the SAME reconciler, queue and caches,
// so they are constructed once in cmd/server and injected here.
type Deps struct {
	DB         *gorm.DB
	RDB        *redis.Client
	Products   repository.ProductStore
	Offline    repository.OfflineInvoiceQueue
	Catalog    service.CatalogService
	Checkout   service.CheckoutService
	Sync       service.SyncService
	Reconciler *service.Reconciler
	OOS        cache.OutOfStockIndex
}

// New returns the configured gin engine for the terminal UI facade.
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())

	checkoutH := handler.NewCheckoutHandler(deps.Checkout)
	syncH := handler.NewSyncHandler(deps.Sync)
	productsH := handler.NewProductsHandler(deps.Products, deps.Catalog, deps.OOS)

	r.GET("/health", handler.Health(deps.DB, deps.RDB, deps.Reconciler, deps.Offline))

	v1 := r.Group("/v1")
	{
		v1.POST("/checkout", checkoutH.Checkout)
		v1.DELETE("/invoices/:id", checkoutH.Cancel)

		v1.POST("/sync", syncH.Sync)
		v1.GET("/sync/queue", syncH.Queue)

		v1.GET("/products", productsH.List)
		v1.GET("/products/out-of-stock", productsH.OutOfStock)
		v1.POST("/catalog/refresh", productsH.Refresh)
	}

	return r
}
