package handler

import (
	"context"
	"strconv"
	"time"

	"nanitabeyo/internal/config"
	"nanitabeyo/internal/model"
	"nanitabeyo/internal/repository"
	"nanitabeyo/internal/service"
	"nanitabeyo/pkg/money"
	"nanitabeyo/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Handler struct {
	bidService    *service.BidService
	payoutService *service.PayoutService
}

func NewHandler(db *gorm.DB, cfg *config.Config) (*Handler, error) {
	allocator, err := service.NewPoolAllocator(cfg.Business.ContributorShareBps)
	if err != nil {
		return nil, err
	}
	catalog := repository.NewCatalogRepository(db)
	return &Handler{
		bidService:    service.NewBidService(db, catalog, cfg),
		payoutService: service.NewPayoutService(db, catalog, allocator, cfg),
	}, nil
}

// ============================================================
// Views
// ============================================================

type BidView struct {
	ID              uuid.UUID       `json:"id"`
	RestaurantID    uuid.UUID       `json:"restaurant_id"`
	UserID          uuid.UUID       `json:"user_id"`
	PaymentIntentID *string         `json:"payment_intent_id"`
	RefundID        *string         `json:"refund_id"`
	AmountCents     int64           `json:"amount_cents"`
	AmountDisplay   string          `json:"amount_display"`
	CurrencyCode    string          `json:"currency_code"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	Status          model.BidStatus `json:"status"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toBidView(bid *model.RestaurantBid) BidView {
	display, _ := money.Format(bid.AmountCents, bid.CurrencyCode)
	return BidView{
		ID:              bid.ID,
		RestaurantID:    bid.RestaurantID,
		UserID:          bid.UserID,
		PaymentIntentID: bid.PaymentIntentID,
		RefundID:        bid.RefundID,
		AmountCents:     bid.AmountCents,
		AmountDisplay:   display,
		CurrencyCode:    bid.CurrencyCode,
		StartDate:       bid.StartDate.UTC().Format(dateLayout),
		EndDate:         bid.EndDate.UTC().Format(dateLayout),
		Status:          bid.Status,
		Version:         bid.Version,
		CreatedAt:       bid.CreatedAt,
		UpdatedAt:       bid.UpdatedAt,
	}
}

type PayoutView struct {
	ID            uuid.UUID          `json:"id"`
	BidID         uuid.UUID          `json:"bid_id"`
	DishMediaID   uuid.UUID          `json:"dish_media_id"`
	TransferID    string             `json:"transfer_id"`
	AmountCents   int64              `json:"amount_cents"`
	AmountDisplay string             `json:"amount_display,omitempty"`
	CurrencyCode  *string            `json:"currency_code"`
	Status        model.PayoutStatus `json:"status"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func toPayoutView(p *model.Payout) PayoutView {
	view := PayoutView{
		ID:           p.ID,
		BidID:        p.BidID,
		DishMediaID:  p.DishMediaID,
		TransferID:   p.TransferID,
		AmountCents:  p.AmountCents,
		CurrencyCode: p.CurrencyCode,
		Status:       p.Status,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.CurrencyCode != nil {
		view.AmountDisplay, _ = money.Format(p.AmountCents, *p.CurrencyCode)
	}
	return view
}

func toPayoutViews(payouts []*model.Payout) []PayoutView {
	views := make([]PayoutView, 0, len(payouts))
	for _, p := range payouts {
		views = append(views, toPayoutView(p))
	}
	return views
}

// ============================================================
// Bids
// ============================================================

type PlaceBidRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	UserID       string `json:"user_id" binding:"required"`
	AmountCents  int64  `json:"amount_cents"`
	CurrencyCode string `json:"currency_code" binding:"required"`
	StartDate    string `json:"start_date" binding:"required"` // YYYY-MM-DD, UTC
	EndDate      string `json:"end_date" binding:"required"`
}

// PlaceBid
// POST /api/v1/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		response.ParamError(c, "restaurant_id must be a uuid")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.ParamError(c, "user_id must be a uuid")
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		response.ParamError(c, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		response.ParamError(c, "end_date must be YYYY-MM-DD")
		return
	}

	bid, err := h.bidService.PlaceBid(c.Request.Context(), &service.PlaceBidRequest{
		RestaurantID: restaurantID,
		UserID:       userID,
		AmountCents:  req.AmountCents,
		CurrencyCode: req.CurrencyCode,
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toBidView(bid))
}

// GetBid
// GET /api/v1/bids/:id
func (h *Handler) GetBid(c *gin.Context) {
	bidID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	bid, err := h.bidService.GetBid(c.Request.Context(), bidID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toBidView(bid))
}

// ListRestaurantBids
// GET /api/v1/restaurants/:id/bids?page=1&page_size=20
func (h *Handler) ListRestaurantBids(c *gin.Context) {
	restaurantID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	bids, total, err := h.bidService.ListRestaurantBids(c.Request.Context(), restaurantID, page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}

	views := make([]BidView, 0, len(bids))
	for _, bid := range bids {
		views = append(views, toBidView(bid))
	}
	response.Success(c, gin.H{
		"list":  views,
		"total": total,
		"page":  page,
	})
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	ExpectedVersion *int   `json:"expected_version" binding:"required,min=0"`
}

// ConfirmPayment
// POST /api/v1/bids/:id/confirm
func (h *Handler) ConfirmPayment(c *gin.Context) {
	bidID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	bid, err := h.bidService.ConfirmPayment(c.Request.Context(), bidID, req.PaymentIntentID, *req.ExpectedVersion)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toBidView(bid))
}

type RefundBidRequest struct {
	RefundID        string `json:"refund_id" binding:"required"`
	ExpectedVersion *int   `json:"expected_version" binding:"required,min=0"`
}

// RefundBid
// POST /api/v1/bids/:id/refund
func (h *Handler) RefundBid(c *gin.Context) {
	bidID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req RefundBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	bid, err := h.bidService.RefundBid(c.Request.Context(), bidID, req.RefundID, *req.ExpectedVersion)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toBidView(bid))
}

// ============================================================
// Payouts
// ============================================================

// Settle runs settlement for one bid on demand; the settlement job does the
// same on a schedule.
// POST /api/v1/bids/:id/settle
func (h *Handler) Settle(c *gin.Context) {
	bidID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.payoutService.Settle(c.Request.Context(), bidID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"bid_id":  result.BidID,
		"created": toPayoutViews(result.Created),
		"skipped": result.Skipped,
	})
}

// ListBidPayouts
// GET /api/v1/bids/:id/payouts
func (h *Handler) ListBidPayouts(c *gin.Context) {
	bidID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	payouts, err := h.payoutService.ListBidPayouts(c.Request.Context(), bidID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"list": toPayoutViews(payouts)})
}

// GetPayout
// GET /api/v1/payouts/:id
func (h *Handler) GetPayout(c *gin.Context) {
	payoutID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	payout, err := h.payoutService.GetPayout(c.Request.Context(), payoutID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toPayoutView(payout))
}

// GetPayoutByTransfer resolves the transfer id a payment rail reports back.
// GET /api/v1/transfers/:transfer_id/payout
func (h *Handler) GetPayoutByTransfer(c *gin.Context) {
	transferID := c.Param("transfer_id")

	payout, err := h.payoutService.GetPayoutByTransferID(c.Request.Context(), transferID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toPayoutView(payout))
}

type VersionRequest struct {
	ExpectedVersion *int `json:"expected_version" binding:"required,min=0"`
}

// MarkPayoutPaid
// POST /api/v1/payouts/:id/paid
func (h *Handler) MarkPayoutPaid(c *gin.Context) {
	h.transitionPayout(c, h.payoutService.MarkPaid)
}

// MarkPayoutRefunded
// POST /api/v1/payouts/:id/refund
func (h *Handler) MarkPayoutRefunded(c *gin.Context) {
	h.transitionPayout(c, h.payoutService.MarkRefunded)
}

type payoutTransition func(ctx context.Context, payoutID uuid.UUID, expectedVersion int) (*model.Payout, error)

func (h *Handler) transitionPayout(c *gin.Context, apply payoutTransition) {
	payoutID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req VersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	payout, err := apply(c.Request.Context(), payoutID, *req.ExpectedVersion)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, toPayoutView(payout))
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ParamError(c, name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
