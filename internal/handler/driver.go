package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"orbix/internal/domain"
	"orbix/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
	walletService *service.WalletService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService, walletService *service.WalletService) *DriverHandler {
	return &DriverHandler{
		driverService: driverService,
		walletService: walletService,
	}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehicleClass string `json:"vehicle_class"`
	Plate        string `json:"plate"`
	Color        string `json:"color"`
}

// DriverResponse is the HTTP representation of a driver profile.
type DriverResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Status       string  `json:"status"`
	VehicleClass string  `json:"vehicle_class"`
	Plate        string  `json:"plate"`
	Color        string  `json:"color"`
	Rating       float64 `json:"rating"`
}

// DriverStatsResponse adds the earning counters to the profile.
type DriverStatsResponse struct {
	DriverResponse
	WalletBalance  float64 `json:"wallet_balance"`
	TodayEarnings  float64 `json:"today_earnings"`
	TripsToday     int     `json:"trips_today"`
	WeeklyEarnings float64 `json:"weekly_earnings"`
	WeeklyTrips    int     `json:"weekly_trips"`
	TotalTrips     int     `json:"total_trips"`
	AvgRideTimeMin int     `json:"avg_ride_time_min"`
}

func toDriverResponse(driver *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           driver.ID,
		Name:         driver.Name,
		Phone:        driver.Phone,
		Status:       string(driver.Status),
		VehicleClass: string(driver.VehicleClass),
		Plate:        driver.Plate,
		Color:        driver.Color,
		Rating:       driver.Rating,
	}
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverRequest{
		Name:         req.Name,
		Phone:        req.Phone,
		VehicleClass: req.VehicleClass,
		Plate:        req.Plate,
		Color:        req.Color,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// UpdateLocationRequest is the HTTP request body for updating driver location.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation handles POST /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "invalid_request"})
		return
	}

	err := h.driverService.UpdateLocation(c.Request.Context(), service.UpdateLocationRequest{
		DriverID: c.Param("id"),
		Lat:      req.Lat,
		Lng:      req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Deactivate handles POST /v1/drivers/:id/deactivate
func (h *DriverHandler) Deactivate(c *gin.Context) {
	if err := h.driverService.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /v1/drivers/:id/stats
func (h *DriverHandler) Stats(c *gin.Context) {
	driver, err := h.driverService.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DriverStatsResponse{
		DriverResponse: toDriverResponse(driver),
		WalletBalance:  driver.WalletBalance,
		TodayEarnings:  driver.TodayEarnings,
		TripsToday:     driver.TripsToday,
		WeeklyEarnings: driver.WeeklyEarnings,
		WeeklyTrips:    driver.WeeklyTrips,
		TotalTrips:     driver.TotalTrips,
		AvgRideTimeMin: driver.AvgRideTimeMin,
	})
}

// Transactions handles GET /v1/drivers/:id/transactions
func (h *DriverHandler) Transactions(c *gin.Context) {
	txns, err := h.walletService.Transactions(c.Request.Context(), c.Param("id"), domain.OwnerDriver, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTransactionResponses(txns))
}

// TransactionResponse is the HTTP representation of a ledger entry.
type TransactionResponse struct {
	ID          string  `json:"id"`
	RideID      string  `json:"ride_id,omitempty"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	ExternalRef string  `json:"external_ref,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toTransactionResponses(txns []*domain.Transaction) []TransactionResponse {
	response := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		response = append(response, TransactionResponse{
			ID:          txn.ID,
			RideID:      txn.RideID,
			Type:        string(txn.Type),
			Amount:      txn.Amount,
			Description: txn.Description,
			ExternalRef: txn.ExternalRef,
			CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
		})
	}
	return response
}
