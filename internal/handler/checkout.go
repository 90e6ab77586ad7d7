package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lethieuanh89/taphoa39-sub000/internal/apierror"
	"github.com/lethieuanh89/taphoa39-sub000/internal/dto"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/service"
)

type CheckoutHandler struct {
	svc service.CheckoutService
}

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// Checkout handles POST /v1/checkout.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid request body"))
		return
	}

	resp, err := h.svc.Checkout(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckoutInFlight):
			c.JSON(http.StatusConflict, apierror.New(err.Error()))
		default:
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		}
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cancel handles DELETE /v1/invoices/:id.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid invoice id"))
		return
	}
	if err := h.svc.CancelInvoice(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("invoice not found"))
			return
		}
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}
