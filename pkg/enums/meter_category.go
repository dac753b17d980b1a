package enums

import "fmt"

// MeterCategory classifies what a metering point is allowed to do on the grid.
type MeterCategory string

const (
	MeterCategoryConsumer MeterCategory = "consumer"
	MeterCategoryProducer MeterCategory = "producer"
	MeterCategoryProsumer MeterCategory = "prosumer"
)

var validMeterCategories = []MeterCategory{
	MeterCategoryConsumer,
	MeterCategoryProducer,
	MeterCategoryProsumer,
}

// String implements fmt.Stringer.
func (m MeterCategory) String() string {
	return string(m)
}

// CanExport reports whether the category may inject energy into the grid.
func (m MeterCategory) CanExport() bool {
	return m == MeterCategoryProducer || m == MeterCategoryProsumer
}

// IsValid reports whether the value is known.
func (m MeterCategory) IsValid() bool {
	for _, candidate := range validMeterCategories {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMeterCategory converts raw input into a MeterCategory.
func ParseMeterCategory(value string) (MeterCategory, error) {
	for _, candidate := range validMeterCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid meter category %q", value)
}
