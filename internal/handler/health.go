package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/service"
)

// Health reports store/redis reachability, the remote circuit breaker state
// and the offline queue depth.
func Health(db *gorm.DB, rdb *redis.Client, reconciler *service.Reconciler, offline repository.OfflineInvoiceQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbOK, redisOK := true, true

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			dbOK = false
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			redisOK = false
			status = http.StatusServiceUnavailable
		}

		var queueDepth int64
		if n, err := offline.Len(c.Request.Context()); err == nil {
			queueDepth = n
		}

		c.JSON(status, gin.H{
			"database":        dbOK,
			"redis":           redisOK,
			"remote_breaker":  reconciler.BreakerState(),
			"offline_pending": queueDepth,
		})
	}
}
