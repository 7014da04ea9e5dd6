package enums

import "fmt"

// PromoMeasurement distinguishes percentage promocodes from fixed-amount ones.
type PromoMeasurement string

const (
	PromoMeasurementPercent  PromoMeasurement = "percent"
	PromoMeasurementAbsolute PromoMeasurement = "absolute"
)

var validPromoMeasurements = []PromoMeasurement{
	PromoMeasurementPercent,
	PromoMeasurementAbsolute,
}

// String implements fmt.Stringer.
func (p PromoMeasurement) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromoMeasurement.
func (p PromoMeasurement) IsValid() bool {
	for _, candidate := range validPromoMeasurements {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoMeasurement converts raw input into a PromoMeasurement.
func ParsePromoMeasurement(value string) (PromoMeasurement, error) {
	for _, candidate := range validPromoMeasurements {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo measurement %q", value)
}
