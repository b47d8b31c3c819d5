package enums

import "fmt"

// ServiceType identifies which marketplace vertical originated a request.
type ServiceType string

const (
	ServiceTypeRecharge  ServiceType = "recharge"
	ServiceTypeBooking   ServiceType = "booking"
	ServiceTypeRental    ServiceType = "rental"
	ServiceTypeTaxi      ServiceType = "taxi"
	ServiceTypeDelivery  ServiceType = "delivery"
	ServiceTypeRecycling ServiceType = "recycling"
	ServiceTypeGrocery   ServiceType = "grocery"
)

var validServiceTypes = []ServiceType{
	ServiceTypeRecharge,
	ServiceTypeBooking,
	ServiceTypeRental,
	ServiceTypeTaxi,
	ServiceTypeDelivery,
	ServiceTypeRecycling,
	ServiceTypeGrocery,
}

// String implements fmt.Stringer.
func (s ServiceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceType.
func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceType converts raw input into a ServiceType.
func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}
