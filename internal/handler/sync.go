package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lethieuanh89/taphoa39-sub000/internal/apierror"
	"github.com/lethieuanh89/taphoa39-sub000/internal/service"
)

type SyncHandler struct {
	svc service.SyncService
}

func NewSyncHandler(svc service.SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Sync handles POST /v1/sync — the manual replay trigger.
func (h *SyncHandler) Sync(c *gin.Context) {
	result, err := h.svc.Sync(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("sync pass failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Queue handles GET /v1/sync/queue.
func (h *SyncHandler) Queue(c *gin.Context) {
	entries, err := h.svc.ListQueue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("queue listing failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "total": len(entries)})
}
