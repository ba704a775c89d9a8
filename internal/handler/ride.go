package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"orbix/internal/domain"
	"orbix/internal/repository"
	"orbix/internal/service"
)

// RideHandler handles HTTP requests for the ride lifecycle.
type RideHandler struct {
	rideService *service.RideService
	settlement  *service.SettlementService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, settlement *service.SettlementService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		settlement:  settlement,
	}
}

// CreateRideRequest is the HTTP request body for requesting a ride.
type CreateRideRequest struct {
	RiderID      string `json:"rider_id"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class"`
}

// CreateRideResponse echoes the new ride plus the start code the rider
// hands to the driver. The OTP appears only here.
type CreateRideResponse struct {
	RideResponse
	OTP string `json:"otp"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             string  `json:"id"`
	RiderID        string  `json:"rider_id"`
	DriverID       string  `json:"driver_id,omitempty"`
	Pickup         string  `json:"pickup"`
	Destination    string  `json:"destination"`
	VehicleClass   string  `json:"vehicle_class"`
	DistanceKm     float64 `json:"distance_km"`
	DurationMin    float64 `json:"duration_min"`
	Fare           float64 `json:"fare"`
	WalletLinked   bool    `json:"wallet_linked"`
	Status         string  `json:"status"`
	StartedAt      string  `json:"started_at,omitempty"`
	EndedAt        string  `json:"ended_at,omitempty"`
	RideDuration   int     `json:"ride_duration_min,omitempty"`
	WaitingCharges float64 `json:"waiting_charges,omitempty"`
	TotalFare      float64 `json:"total_fare,omitempty"`
	PaymentStatus  string  `json:"payment_status"`
	PaymentMethod  string  `json:"payment_method,omitempty"`
	Rating         int     `json:"rating,omitempty"`
	Review         string  `json:"review,omitempty"`
	CreatedAt      string  `json:"created_at"`
	CancelledAt    string  `json:"cancelled_at,omitempty"`
	CancelReason   string  `json:"cancel_reason,omitempty"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	r := RideResponse{
		ID:             ride.ID,
		RiderID:        ride.RiderID,
		DriverID:       ride.DriverID,
		Pickup:         ride.Pickup,
		Destination:    ride.Destination,
		VehicleClass:   string(ride.VehicleClass),
		DistanceKm:     ride.DistanceKm,
		DurationMin:    ride.DurationMin,
		Fare:           ride.Fare,
		WalletLinked:   ride.WalletLinked,
		Status:         string(ride.Status),
		RideDuration:   ride.RideDurationMin,
		WaitingCharges: ride.WaitingCharges,
		TotalFare:      ride.TotalFare,
		PaymentStatus:  string(ride.PaymentStatus),
		PaymentMethod:  string(ride.PaymentMethod),
		Rating:         ride.Rating,
		Review:         ride.Review,
		CreatedAt:      ride.CreatedAt.Format(time.RFC3339),
	}
	if !ride.StartedAt.IsZero() {
		r.StartedAt = ride.StartedAt.Format(time.RFC3339)
	}
	if !ride.EndedAt.IsZero() {
		r.EndedAt = ride.EndedAt.Format(time.RFC3339)
	}
	if !ride.CancelledAt.IsZero() {
		r.CancelledAt = ride.CancelledAt.Format(time.RFC3339)
		r.CancelReason = ride.CancelReason
	}
	return r
}

// Estimate handles GET /v1/rides/estimate
func (h *RideHandler) Estimate(c *gin.Context) {
	resp, err := h.rideService.Estimate(c.Request.Context(), service.EstimateRequest{
		Pickup:      c.Query("pickup"),
		Destination: c.Query("destination"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	fares := make(map[string]float64, len(resp.Fares))
	for class, fare := range resp.Fares {
		fares[string(class)] = fare
	}

	respondJSON(c, http.StatusOK, gin.H{
		"distance_km":  resp.DistanceKm,
		"duration_min": resp.DurationMin,
		"fares":        fares,
	})
}

// Create handles POST /v1/rides
func (h *RideHandler) Create(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	ride, err := h.rideService.Create(c.Request.Context(), service.CreateRideRequest{
		RiderID:      req.RiderID,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: req.VehicleClass,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateRideResponse{
		RideResponse: toRideResponse(ride),
		OTP:          ride.OTP,
	})
}

// Get handles GET /v1/rides/:id
func (h *RideHandler) Get(c *gin.Context) {
	ride, err := h.rideService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AcceptRideRequest is the HTTP request body for claiming a ride.
type AcceptRideRequest struct {
	DriverID string `json:"driver_id"`
}

// Accept handles POST /v1/rides/:id/accept
func (h *RideHandler) Accept(c *gin.Context) {
	var req AcceptRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	ride, err := h.rideService.Accept(c.Request.Context(), service.AcceptRequest{
		RideID:   c.Param("id"),
		DriverID: req.DriverID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// StartRideRequest is the HTTP request body for starting a ride.
type StartRideRequest struct {
	DriverID string `json:"driver_id"`
	OTP      string `json:"otp"`
}

// Start handles POST /v1/rides/:id/start
func (h *RideHandler) Start(c *gin.Context) {
	var req StartRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	ride, err := h.rideService.Start(c.Request.Context(), service.StartRequest{
		RideID:   c.Param("id"),
		DriverID: req.DriverID,
		OTP:      req.OTP,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CompleteRideRequest is the HTTP request body for ending a ride.
type CompleteRideRequest struct {
	DriverID       string  `json:"driver_id"`
	WaitingCharges float64 `json:"waiting_charges"`
}

// Complete handles POST /v1/rides/:id/complete
func (h *RideHandler) Complete(c *gin.Context) {
	var req CompleteRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	resp, err := h.rideService.Complete(c.Request.Context(), service.CompleteRequest{
		RideID:         c.Param("id"),
		DriverID:       req.DriverID,
		WaitingCharges: req.WaitingCharges,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"ride":            toRideResponse(resp.Ride),
		"payment_pending": resp.PaymentPending,
	})
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// Cancel handles POST /v1/rides/:id/cancel
func (h *RideHandler) Cancel(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	ride, err := h.rideService.Cancel(c.Request.Context(), service.CancelRequest{
		RideID:  c.Param("id"),
		ActorID: req.ActorID,
		Reason:  req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// RateRideRequest is the HTTP request body for rating a ride.
type RateRideRequest struct {
	RiderID string `json:"rider_id"`
	Rating  int    `json:"rating"`
	Review  string `json:"review"`
}

// Rate handles POST /v1/rides/:id/rate
func (h *RideHandler) Rate(c *gin.Context) {
	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	err := h.rideService.Rate(c.Request.Context(), service.RateRequest{
		RideID:  c.Param("id"),
		RiderID: req.RiderID,
		Rating:  req.Rating,
		Review:  req.Review,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PayRideRequest is the HTTP request body for collecting a deferred
// ride payment, from the rider's wallet or through a gateway.
type PayRideRequest struct {
	Provider string `json:"provider"`
	PayerRef string `json:"payer_ref"`
	Currency string `json:"currency"`
}

// Pay handles POST /v1/rides/:id/pay
func (h *RideHandler) Pay(c *gin.Context) {
	var req PayRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	if req.Provider == string(domain.PaymentMethodWallet) {
		if err := h.settlement.SettleFromWallet(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, gin.H{
			"status":         "completed",
			"payment_method": domain.PaymentMethodWallet,
		})
		return
	}

	result, err := h.settlement.ConfirmExternal(c.Request.Context(), service.ConfirmExternalRequest{
		RideID:   c.Param("id"),
		Provider: req.Provider,
		PayerRef: req.PayerRef,
		Currency: req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"transaction_id": result.TransactionID,
		"status":         result.Status,
	})
}

// Available handles GET /v1/rides/available
func (h *RideHandler) Available(c *gin.Context) {
	rides, err := h.rideService.AvailableRides(c.Request.Context(), c.Query("driver_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		response = append(response, toRideResponse(ride))
	}
	respondJSON(c, http.StatusOK, response)
}

// historyFilter parses the shared history query parameters: an optional
// status and a date range preset (today, week or all).
func historyFilter(c *gin.Context) repository.RideFilter {
	f := repository.RideFilter{Status: domain.RideStatus(c.Query("status"))}

	switch c.Query("range") {
	case "today":
		now := time.Now()
		f.Since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		f.Since = time.Now().AddDate(0, 0, -7)
	}

	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		f.Limit = limit
	}
	return f
}

// RiderHistory handles GET /v1/riders/:id/rides
func (h *RideHandler) RiderHistory(c *gin.Context) {
	rides, err := h.rideService.HistoryForRider(c.Request.Context(), c.Param("id"), historyFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		response = append(response, toRideResponse(ride))
	}
	respondJSON(c, http.StatusOK, response)
}

// DriverHistory handles GET /v1/drivers/:id/rides
func (h *RideHandler) DriverHistory(c *gin.Context) {
	rides, err := h.rideService.HistoryForDriver(c.Request.Context(), c.Param("id"), historyFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		response = append(response, toRideResponse(ride))
	}
	respondJSON(c, http.StatusOK, response)
}
