package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wattly/wattly-backend/pkg/enums"
)

// InvoiceIssuedEvent signals that a member invoice was generated.
type InvoiceIssuedEvent struct {
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	MemberID       uuid.UUID       `json:"member_id"`
	Number         string          `json:"number"`
	PeriodYear     int             `json:"period_year"`
	PeriodMonth    int             `json:"period_month"`
	Currency       enums.Currency  `json:"currency"`
	Total          decimal.Decimal `json:"total"`
	DueDate        time.Time       `json:"due_date"`
}

// PaymentParty is one side of the payment slip embedded in delivery events.
type PaymentParty struct {
	Name       string `json:"name"`
	Street     string `json:"street,omitempty"`
	PostalCode int    `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
}

// PaymentPayload mirrors the Swiss QR payment data handed to the renderer.
type PaymentPayload struct {
	IBAN          string          `json:"iban"`
	ReferenceType string          `json:"reference_type"`
	Reference     string          `json:"reference,omitempty"`
	Message       string          `json:"message,omitempty"`
	Creditor      PaymentParty    `json:"creditor"`
	Debtor        PaymentParty    `json:"debtor"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      enums.Currency  `json:"currency"`
}

// InvoiceSentEvent carries everything the document renderer and mailer need.
// Delivery failure downstream never mutates the invoice state that produced it.
type InvoiceSentEvent struct {
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	MemberID       uuid.UUID       `json:"member_id"`
	Number         string          `json:"number"`
	RecipientEmail string          `json:"recipient_email"`
	Locale         string          `json:"locale"`
	Total          decimal.Decimal `json:"total"`
	Currency       enums.Currency  `json:"currency"`
	Payment        *PaymentPayload `json:"payment,omitempty"`
	SentAt         time.Time       `json:"sent_at"`
}

// InvoiceCancelledEvent is emitted when an invoice is voided.
type InvoiceCancelledEvent struct {
	InvoiceID      uuid.UUID `json:"invoice_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	MemberID       uuid.UUID `json:"member_id"`
	Number         string    `json:"number"`
	CancelledAt    time.Time `json:"cancelled_at"`
	Reason         string    `json:"reason,omitempty"`
}

// PlatformInvoiceIssuedEvent signals a platform usage invoice for an organization.
type PlatformInvoiceIssuedEvent struct {
	PlatformInvoiceID uuid.UUID       `json:"platform_invoice_id"`
	OrganizationID    uuid.UUID       `json:"organization_id"`
	Number            string          `json:"number"`
	PeriodYear        int             `json:"period_year"`
	PeriodMonth       int             `json:"period_month"`
	TotalKwh          decimal.Decimal `json:"total_kwh"`
	Total             decimal.Decimal `json:"total"`
	MinimumApplied    bool            `json:"minimum_applied"`
}

// LoadCurveImportedEvent reports one completed import run.
type LoadCurveImportedEvent struct {
	OrganizationID uuid.UUID   `json:"organization_id"`
	BatchIDs       []uuid.UUID `json:"batch_ids"`
	AcceptedRows   int         `json:"accepted_rows"`
	RejectedRows   int         `json:"rejected_rows"`
	ImportedAt     time.Time   `json:"imported_at"`
}
