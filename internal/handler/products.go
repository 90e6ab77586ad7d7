package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lethieuanh89/taphoa39-sub000/internal/apierror"
	"github.com/lethieuanh89/taphoa39-sub000/internal/cache"
	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/service"
)

type ProductsHandler struct {
	store   repository.ProductStore
	catalog service.CatalogService
	oos     cache.OutOfStockIndex
}

func NewProductsHandler(store repository.ProductStore, catalog service.CatalogService, oos cache.OutOfStockIndex) *ProductsHandler {
	return &ProductsHandler{store: store, catalog: catalog, oos: oos}
}

// List handles GET /v1/products.
func (h *ProductsHandler) List(c *gin.Context) {
	products, err := h.store.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("product listing failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "total": len(products)})
}

// OutOfStock handles GET /v1/products/out-of-stock.
func (h *ProductsHandler) OutOfStock(c *gin.Context) {
	ids, err := h.oos.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("out-of-stock listing failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ids, "total": len(ids)})
}

// Refresh handles POST /v1/catalog/refresh — a full catalog push from the
// upstream sync event. Groups are rebuilt wholesale.
func (h *ProductsHandler) Refresh(c *gin.Context) {
	var products []model.Product
	if err := c.ShouldBindJSON(&products); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid catalog payload"))
		return
	}
	if err := h.catalog.Refresh(c.Request.Context(), products); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("catalog refresh failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(products)})
}
