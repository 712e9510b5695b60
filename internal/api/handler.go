package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/models"
	"thrift-orders/internal/service"
	"thrift-orders/internal/stockpile"
	"thrift-orders/internal/store"
	"thrift-orders/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders      *service.OrderService
	fulfillment *service.FulfillmentService
	offers      *service.OfferService
	piles       *service.StockpileService
	aggregator  *stockpile.Aggregator
	store       *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	fulfillment *service.FulfillmentService,
	offers *service.OfferService,
	piles *service.StockpileService,
	aggregator *stockpile.Aggregator,
	store *store.Store,
) *Handler {
	return &Handler{
		orders:      orders,
		fulfillment: fulfillment,
		offers:      offers,
		piles:       piles,
		aggregator:  aggregator,
		store:       store,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/orders/:id/status", h.getOrderStatus)
		v1.POST("/orders/:id/accept", h.acceptOrder)
		v1.POST("/orders/:id/decline", h.declineOrder)
		v1.POST("/orders/:id/ship", h.shipOrder)
		v1.POST("/orders/:id/pickup", h.schedulePickup)
		v1.POST("/orders/:id/deliver", h.markDelivered)
		v1.POST("/orders/:id/dispute", h.disputeOrder)
		v1.POST("/orders/:id/review", h.markReviewed)

		v1.GET("/vendors/:id/stockpiles", h.getStockpiles)
		v1.POST("/stockpiles/register", h.registerStockpileOrder)

		v1.GET("/offers/quote", h.getOfferQuote)
		v1.POST("/offers", h.submitOffer)
		v1.POST("/offers/:id/respond", h.respondToOffer)
		v1.GET("/buyers/:id/offers", h.getBuyerOffers)
		v1.GET("/buyers/:id/offers/remaining", h.getOfferRemaining)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getOrder returns an order with its line items
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// getOrderStatus returns the order's progress status, cache-first
func (h *Handler) getOrderStatus(c *gin.Context) {
	status, err := h.orders.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("id"), "progress_status": status})
}

type vendorActionRequest struct {
	Reason string `json:"reason,omitempty"`
	service.VendorInfo
}

// acceptOrder moves a pending order into progress
func (h *Handler) acceptOrder(c *gin.Context) {
	var req vendorActionRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.orders.Accept(c.Request.Context(), c.Param("id"), req.VendorInfo); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// declineOrder rejects a pending order with a reason
func (h *Handler) declineOrder(c *gin.Context) {
	var req vendorActionRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.orders.Decline(c.Request.Context(), c.Param("id"), req.Reason, req.VendorInfo); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "declined"})
}

// shipOrder handles the rider-delivery ship flow
func (h *Handler) shipOrder(c *gin.Context) {
	var req service.ShipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.fulfillment.ShipVendorOrder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// schedulePickup handles the pickup-window flow
func (h *Handler) schedulePickup(c *gin.Context) {
	var req service.PickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.fulfillment.ScheduleOrderPickup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// markDelivered records a confirmed delivery
func (h *Handler) markDelivered(c *gin.Context) {
	var req vendorActionRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.orders.MarkDelivered(c.Request.Context(), c.Param("id"), req.VendorInfo); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "delivered"})
}

// disputeOrder records a buyer dispute
func (h *Handler) disputeOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.orders.Dispute(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disputed"})
}

// markReviewed flags the order as reviewed by its buyer
func (h *Handler) markReviewed(c *gin.Context) {
	if err := h.orders.MarkReviewed(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reviewed"})
}

type stockpileGroupView struct {
	stockpile.Group
	ValidityColor stockpile.Color `json:"validity_color"`
}

// getStockpiles returns a vendor's merged pile groups, newest first,
// optionally scoped to one buyer.
func (h *Handler) getStockpiles(c *gin.Context) {
	ctx := c.Request.Context()
	vendorID := c.Param("id")

	var err error
	var orders []models.Order
	if buyer := c.Query("buyer"); buyer != "" {
		orders, err = h.store.GetOrdersByVendorAndBuyer(ctx, vendorID, buyer)
	} else {
		orders, err = h.store.GetOrdersByVendor(ctx, vendorID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	groups := h.aggregator.Aggregate(ctx, orders, now)

	views := make([]stockpileGroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, stockpileGroupView{
			Group:         g,
			ValidityColor: stockpile.ValidityColor(g.StartDate, g.EndDate, now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"groups": views})
}

// registerStockpileOrder attaches a checked-out order to its pile; the
// checkout service calls this after the order write lands.
func (h *Handler) registerStockpileOrder(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	pile, err := h.piles.RegisterOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stockpile": pile})
}

// getOfferQuote returns the offer price band for a list price
func (h *Handler) getOfferQuote(c *gin.Context) {
	price, err := strconv.ParseInt(c.Query("price"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
		return
	}

	quote, err := h.offers.Quote(price)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// submitOffer handles offer submission
func (h *Handler) submitOffer(c *gin.Context) {
	var req service.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.offers.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// respondToOffer records the vendor's answer to a pending offer
func (h *Handler) respondToOffer(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	offer, err := h.offers.Respond(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// getBuyerOffers returns the buyer's offers, newest first
func (h *Handler) getBuyerOffers(c *gin.Context) {
	offers, err := h.offers.ListByBuyer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// getOfferRemaining returns the advisory remaining daily quota
func (h *Handler) getOfferRemaining(c *gin.Context) {
	remaining, err := h.offers.RemainingToday(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining": remaining})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrRateLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrNotYetVisible):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
