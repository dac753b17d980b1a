package enums

import "fmt"

// InvoiceLineKind tags the role of a line item on an invoice.
type InvoiceLineKind string

const (
	InvoiceLineKindConsumption      InvoiceLineKind = "consumption"
	InvoiceLineKindProductionCredit InvoiceLineKind = "production_credit"
	InvoiceLineKindFee              InvoiceLineKind = "fee"
	InvoiceLineKindAdjustment       InvoiceLineKind = "adjustment"
)

var validInvoiceLineKinds = []InvoiceLineKind{
	InvoiceLineKindConsumption,
	InvoiceLineKindProductionCredit,
	InvoiceLineKindFee,
	InvoiceLineKindAdjustment,
}

// String implements fmt.Stringer.
func (k InvoiceLineKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k InvoiceLineKind) IsValid() bool {
	for _, candidate := range validInvoiceLineKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseInvoiceLineKind converts raw input into an InvoiceLineKind.
func ParseInvoiceLineKind(value string) (InvoiceLineKind, error) {
	for _, candidate := range validInvoiceLineKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice line kind %q", value)
}
