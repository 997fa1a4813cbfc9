package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/analytics"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	listings     *service.ListingService
	approvals    *service.ApprovalService
	transactions *service.TransactionService
	analytics    *service.AnalyticsService
	dashboard    *service.Dashboard
}

func NewHandler(
	listings *service.ListingService,
	approvals *service.ApprovalService,
	transactions *service.TransactionService,
	analytics *service.AnalyticsService,
	dashboard *service.Dashboard,
) *Handler {
	return &Handler{
		listings:     listings,
		approvals:    approvals,
		transactions: transactions,
		analytics:    analytics,
		dashboard:    dashboard,
	}
}

// NewRouter builds the gin engine with every route behind JWT auth.
func NewRouter(h *Handler, secret []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), CORS())
	h.RegisterRoutes(r.Group("/api", JWTAuth(secret)))
	return r
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	seller := rg.Group("", RequireRole(RoleSeller))
	seller.POST("/listings", h.handleCreateListing)
	seller.GET("/listings", h.handleSellerListings)
	seller.DELETE("/listings/:id", h.handleDeleteListing)
	seller.POST("/listings/:id/restore", h.handleRestoreListing)
	seller.GET("/seller/analytics", h.handleSellerAnalytics)
	seller.GET("/seller/sales", h.handleSales)
	seller.GET("/seller/rentals", h.handleRentals)

	rg.GET("/listings/:id/history", RequireRole(RoleSeller, RoleAdmin), h.handleListingHistory)

	rg.GET("/market", h.handleMarketplace)
	rg.POST("/market/:id/purchase", RequireRole(RoleBuyer), h.handlePurchase)

	admin := rg.Group("/admin", RequireRole(RoleAdmin))
	admin.GET("/listings/pending", h.handlePending)
	admin.GET("/listings/accepted", h.handleAccepted)
	admin.GET("/listings/declined", h.handleDeclined)
	admin.PUT("/listings/:id/accept", h.handleAccept)
	admin.PUT("/listings/:id/decline", h.handleDecline)
	admin.GET("/analytics", h.handleOrderVolume)
	admin.GET("/dashboard", h.handleDashboard)
}

// CreateListingRequest accepts prices as JSON numbers or numeric strings.
type CreateListingRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	AgeLabel    string      `json:"ageLabel"`
	ListingType string      `json:"listingType"`
	BuyPrice    json.Number `json:"buyPrice"`
	RentPrice   json.Number `json:"rentPrice"`
	Image       string      `json:"image"`
}

func (h *Handler) handleCreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	l, err := h.listings.CreateListing(c.Request.Context(), service.CreateListingInput{
		Name:        req.Name,
		Description: req.Description,
		AgeLabel:    req.AgeLabel,
		ListingType: entity.ListingType(req.ListingType),
		BuyPrice:    req.BuyPrice.String(),
		RentPrice:   req.RentPrice.String(),
		Image:       req.Image,
		Seller:      identity(c).Name,
	})
	if err != nil {
		writeError(c, "create listing", err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *Handler) handleSellerListings(c *gin.Context) {
	f, err := entity.ParseManageFilter(c.Query("filter"))
	if err != nil {
		writeError(c, "list listings", err)
		return
	}
	list, err := h.listings.SellerListings(c.Request.Context(), f)
	if err != nil {
		writeError(c, "list listings", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) handleDeleteListing(c *gin.Context) {
	l, err := h.listings.SoftDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "delete listing", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) handleRestoreListing(c *gin.Context) {
	l, err := h.listings.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "restore listing", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

type historyEvent struct {
	Version   int             `json:"version"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (h *Handler) handleListingHistory(c *gin.Context) {
	records, l, err := h.listings.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "load listing history", err)
		return
	}
	events := make([]historyEvent, 0, len(records))
	for _, rec := range records {
		events = append(events, historyEvent{
			Version:   rec.Version,
			EventType: rec.EventType,
			Payload:   rec.Payload,
			CreatedAt: rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"listing": l, "events": events})
}

func (h *Handler) handleMarketplace(c *gin.Context) {
	f, err := entity.ParseMarketFilter(c.Query("action"))
	if err != nil {
		writeError(c, "list marketplace", err)
		return
	}
	list, err := h.listings.Marketplace(c.Request.Context(), f)
	if err != nil {
		writeError(c, "list marketplace", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PurchaseRequest is a buy or rent. RentStart is RFC 3339 or YYYY-MM-DD.
type PurchaseRequest struct {
	Action    string `json:"action"`
	Quantity  int    `json:"quantity"`
	RentDays  int    `json:"rentDays"`
	RentStart string `json:"rentStart"`
}

func (h *Handler) handlePurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	purchase := service.PurchaseRequest{
		Action:    entity.Action(req.Action),
		BuyerName: identity(c).Name,
		Quantity:  req.Quantity,
		RentDays:  req.RentDays,
	}
	if req.RentStart != "" {
		start, err := parseDate(req.RentStart)
		if err != nil {
			writeError(c, "place order", &entity.ValidationError{Field: "rentStart", Reason: err.Error()})
			return
		}
		purchase.RentStart = start
	}

	order, err := h.transactions.Purchase(c.Request.Context(), c.Param("id"), purchase)
	if err != nil {
		writeError(c, "place order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func (h *Handler) handlePending(c *gin.Context) {
	h.writeListings(c, "list pending listings", h.listings.PendingApproval)
}

func (h *Handler) handleAccepted(c *gin.Context) {
	h.writeListings(c, "list accepted listings", h.listings.Accepted)
}

func (h *Handler) handleDeclined(c *gin.Context) {
	h.writeListings(c, "list declined listings", h.listings.Declined)
}

func (h *Handler) handleAccept(c *gin.Context) {
	l, err := h.approvals.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "accept listing", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) handleDecline(c *gin.Context) {
	l, err := h.approvals.Decline(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "decline listing", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) handleOrderVolume(c *gin.Context) {
	tf, err := analytics.ParseTimeframe(c.Query("timeframe"))
	if err != nil {
		writeError(c, "compute order volume", err)
		return
	}
	v, err := h.analytics.OrderVolume(c.Request.Context(), tf)
	if err != nil {
		writeError(c, "compute order volume", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) handleDashboard(c *gin.Context) {
	if h.dashboard == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "dashboard is not running"})
		return
	}
	v, ok := h.dashboard.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard is not ready"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) handleSellerAnalytics(c *gin.Context) {
	report, err := h.analytics.SellerReport(c.Request.Context())
	if err != nil {
		writeError(c, "compute seller analytics", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) handleSales(c *gin.Context) {
	sales, err := h.analytics.Sales(c.Request.Context())
	if err != nil {
		writeError(c, "list sales", err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *Handler) handleRentals(c *gin.Context) {
	rentals, err := h.analytics.Rentals(c.Request.Context())
	if err != nil {
		writeError(c, "list rentals", err)
		return
	}
	c.JSON(http.StatusOK, rentals)
}

func (h *Handler) writeListings(c *gin.Context, op string, load func(ctx context.Context) ([]entity.Listing, error)) {
	list, err := load(c.Request.Context())
	if err != nil {
		writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
