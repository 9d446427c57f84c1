// Package handlers exposes order assembly over HTTP.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"orderscan/pkg/models"
	"orderscan/pkg/services/layout"
	"orderscan/pkg/services/ocr"
	"orderscan/pkg/services/order"
	"orderscan/pkg/services/render"
	"orderscan/pkg/store"
)

// OrderStore persists orders.
type OrderStore interface {
	Save(ctx context.Context, o *models.Order) error
	List(ctx context.Context, limit, offset int) ([]*models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
}

// Handler serves the order API. OCR and Renderer are optional; without OCR
// the image upload route answers 503.
type Handler struct {
	Engine    *order.Engine
	Store     OrderStore
	OCR       ocr.Recognizer
	Renderer  *render.Renderer
	RenderDir string
	Log       logrus.FieldLogger
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.health)
	r.POST("/orders", h.createOrder)
	r.POST("/scan-order", h.scanOrder)
	r.GET("/orders", h.listOrders)
	r.GET("/orders/:id", h.getOrder)
}

// OrderRequest is a document already run through OCR.
type OrderRequest struct {
	DocumentType string        `json:"document_type" binding:"required"`
	Pages        []models.Page `json:"pages" binding:"required,min=1"`
}

// OrderResponse carries the full order and its minimal output form.
type OrderResponse struct {
	Order        *models.Order `json:"order"`
	Output       models.Output `json:"output"`
	ReviewImages []string      `json:"review_images,omitempty"`
}

func (h *Handler) logger() logrus.FieldLogger {
	if h.Log == nil {
		return logrus.StandardLogger()
	}
	return h.Log
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "catalog_products": h.Engine.Catalog().Len()})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docType, err := models.ParseDocumentType(req.DocumentType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, ok := h.assemble(c, order.Document{Type: docType, Pages: req.Pages})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, OrderResponse{Order: o, Output: o.Output()})
}

func (h *Handler) scanOrder(c *gin.Context) {
	if h.OCR == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ocr is not configured"})
		return
	}
	docType, err := models.ParseDocumentType(c.DefaultPostForm("document_type", string(models.DocumentPrint)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["image"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image uploaded"})
		return
	}

	dir, err := os.MkdirTemp("", "scan-order-*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	defer os.RemoveAll(dir)

	var pages []models.Page
	var images []string
	for i, fh := range form.File["image"] {
		path := filepath.Join(dir, fmt.Sprintf("%d%s", i, filepath.Ext(fh.Filename)))
		if err := c.SaveUploadedFile(fh, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
			return
		}
		page, err := h.OCR.Recognize(c.Request.Context(), path)
		if err != nil {
			h.logger().WithError(err).WithField("file", fh.Filename).Error("ocr failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "ocr failed"})
			return
		}
		page.Index = i
		pages = append(pages, page)
		images = append(images, path)
	}

	o, ok := h.assemble(c, order.Document{Type: docType, Pages: pages})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, OrderResponse{Order: o, Output: o.Output(), ReviewImages: h.review(o, images)})
}

// assemble runs the engine and stores the order. It writes the error response
// itself and reports whether the caller should continue.
func (h *Handler) assemble(c *gin.Context, doc order.Document) (*models.Order, bool) {
	o, err := h.Engine.Assemble(doc)
	if errors.Is(err, layout.ErrHeader) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if h.Store != nil {
		if err := h.Store.Save(c.Request.Context(), o); err != nil {
			h.logger().WithError(err).WithField("order_id", o.ID).Error("save order failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save order"})
			return nil, false
		}
	}
	return o, true
}

// review renders one image per page. Failures are logged; the order is
// already stored.
func (h *Handler) review(o *models.Order, images []string) []string {
	if h.Renderer == nil {
		return nil
	}
	dir := h.RenderDir
	if dir == "" {
		dir = os.TempDir()
	}
	var out []string
	for i, img := range images {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", o.ID, i))
		if err := h.Renderer.RenderFile(img, o.ItemsOnPage(i), path); err != nil {
			h.logger().WithError(err).WithField("order_id", o.ID).Error("render review image failed")
			continue
		}
		out = append(out, path)
	}
	return out
}

func (h *Handler) listOrders(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(store.DefaultListLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	orders, err := h.Store.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger().WithError(err).Error("list orders failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = OrderResponse{Order: o, Output: o.Output()}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getOrder(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is not configured"})
		return
	}
	o, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger().WithError(err).Error("get order failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	c.JSON(http.StatusOK, OrderResponse{Order: o, Output: o.Output()})
}
