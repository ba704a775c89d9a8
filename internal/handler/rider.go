package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"orbix/internal/domain"
	"orbix/internal/service"
)

// RiderHandler handles HTTP requests for riders and their wallets.
type RiderHandler struct {
	riderService  *service.RiderService
	walletService *service.WalletService
}

// NewRiderHandler creates a new RiderHandler.
func NewRiderHandler(riderService *service.RiderService, walletService *service.WalletService) *RiderHandler {
	return &RiderHandler{
		riderService:  riderService,
		walletService: walletService,
	}
}

// RegisterRiderRequest is the HTTP request body for rider registration.
type RegisterRiderRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RiderResponse is the HTTP representation of a rider profile.
type RiderResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	WalletBalance float64 `json:"wallet_balance"`
	WalletLinked  bool    `json:"wallet_linked"`
	TotalRides    int     `json:"total_rides"`
	TotalSpent    float64 `json:"total_spent"`
}

func toRiderResponse(rider *domain.Rider) RiderResponse {
	return RiderResponse{
		ID:            rider.ID,
		Name:          rider.Name,
		Phone:         rider.Phone,
		WalletBalance: rider.WalletBalance,
		WalletLinked:  rider.WalletLinked,
		TotalRides:    rider.TotalRides,
		TotalSpent:    rider.TotalSpent,
	}
}

// Register handles POST /v1/riders/register
func (h *RiderHandler) Register(c *gin.Context) {
	var req RegisterRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	rider, err := h.riderService.Register(c.Request.Context(), service.RegisterRiderRequest{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toRiderResponse(rider))
}

// Get handles GET /v1/riders/:id
func (h *RiderHandler) Get(c *gin.Context) {
	rider, err := h.riderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRiderResponse(rider))
}

// LinkWallet handles POST /v1/riders/:id/wallet/link
func (h *RiderHandler) LinkWallet(c *gin.Context) {
	if err := h.riderService.LinkWallet(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TopUpRequest is the HTTP request body for a wallet top-up.
type TopUpRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Provider string  `json:"provider"`
	PayerRef string  `json:"payer_ref"`
}

// TopUp handles POST /v1/riders/:id/wallet/topup
func (h *RiderHandler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	resp, err := h.walletService.TopUp(c.Request.Context(), service.TopUpRequest{
		RiderID:  c.Param("id"),
		Amount:   req.Amount,
		Currency: req.Currency,
		Provider: req.Provider,
		PayerRef: req.PayerRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"balance":        resp.Balance,
		"transaction_id": resp.TransactionID,
	})
}

// DiscountQuote handles GET /v1/riders/:id/wallet/discount
func (h *RiderHandler) DiscountQuote(c *gin.Context) {
	fare, err := strconv.ParseFloat(c.Query("fare"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid fare", Kind: "invalid_request"})
		return
	}

	quote, err := h.walletService.QuoteDiscount(c.Request.Context(), c.Param("id"), fare)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"discount":      quote.Discount,
		"payable":       quote.Payable,
		"wallet_ok":     quote.WalletOK,
		"wallet_linked": quote.WalletLink,
	})
}

// Transactions handles GET /v1/riders/:id/transactions
func (h *RiderHandler) Transactions(c *gin.Context) {
	txns, err := h.walletService.Transactions(c.Request.Context(), c.Param("id"), domain.OwnerRider, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTransactionResponses(txns))
}
