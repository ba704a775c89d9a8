package service

import (
	"math"

	"orbix/internal/domain"
)

// Route estimate fallbacks used when the routing provider is down.
const (
	FallbackDistanceKm  = 5
	FallbackDurationMin = 15
)

// walletDiscountRate is the flat discount applied when paying from the wallet.
const walletDiscountRate = 0.05

// FareService computes quoted fares from route estimates.
type FareService struct{}

// NewFareService creates a new FareService.
func NewFareService() *FareService {
	return &FareService{}
}

// Estimate computes the fare for a vehicle class over a route estimate.
// The result is rounded to the nearest whole unit.
func (s *FareService) Estimate(class domain.VehicleClass, distanceKm, durationMin float64) (float64, error) {
	base := map[domain.VehicleClass]float64{
		domain.VehicleClassAuto: 30,
		domain.VehicleClassCar:  50,
		domain.VehicleClassMoto: 20,
	}
	perKm := map[domain.VehicleClass]float64{
		domain.VehicleClassAuto: 10,
		domain.VehicleClassCar:  15,
		domain.VehicleClassMoto: 8,
	}
	perMin := map[domain.VehicleClass]float64{
		domain.VehicleClassAuto: 2,
		domain.VehicleClassCar:  3,
		domain.VehicleClassMoto: 1.5,
	}

	b, ok := base[class]
	if !ok {
		return 0, ErrInvalidVehicleClass
	}

	return math.Round(b + perKm[class]*distanceKm + perMin[class]*durationMin), nil
}

// EstimateAll computes fares for every vehicle class over one route.
func (s *FareService) EstimateAll(distanceKm, durationMin float64) map[domain.VehicleClass]float64 {
	fares := make(map[domain.VehicleClass]float64, 3)
	for _, class := range []domain.VehicleClass{domain.VehicleClassAuto, domain.VehicleClassCar, domain.VehicleClassMoto} {
		fare, _ := s.Estimate(class, distanceKm, durationMin)
		fares[class] = fare
	}
	return fares
}

// WalletDiscount returns the flat discount for paying a fare from the
// wallet, rounded to the nearest whole unit.
func (s *FareService) WalletDiscount(fare float64) float64 {
	return math.Round(fare * walletDiscountRate)
}

// ValidVehicleClass reports whether class names a known vehicle class.
func ValidVehicleClass(class string) (domain.VehicleClass, error) {
	switch domain.VehicleClass(class) {
	case domain.VehicleClassAuto, domain.VehicleClassCar, domain.VehicleClassMoto:
		return domain.VehicleClass(class), nil
	default:
		return "", ErrInvalidVehicleClass
	}
}
