package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateInvoice         OutboxAggregateType = "invoice"
	AggregatePlatformInvoice OutboxAggregateType = "platform_invoice"
	AggregateLoadCurveBatch  OutboxAggregateType = "load_curve_batch"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInvoice,
	AggregatePlatformInvoice,
	AggregateLoadCurveBatch,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventInvoiceIssued         OutboxEventType = "invoice_issued"
	EventInvoiceSent           OutboxEventType = "invoice_sent"
	EventInvoiceCancelled      OutboxEventType = "invoice_cancelled"
	EventPlatformInvoiceIssued OutboxEventType = "platform_invoice_issued"
	EventLoadCurveImported     OutboxEventType = "load_curve_imported"
)

var validEventTypes = []OutboxEventType{
	EventInvoiceIssued,
	EventInvoiceSent,
	EventInvoiceCancelled,
	EventPlatformInvoiceIssued,
	EventLoadCurveImported,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
