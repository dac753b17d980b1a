package payments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

const (
	// 26 data digits plus one Mod-10 recursive check digit.
	qrReferenceLength = 27
	qrReferenceDigits = 26
)

// ReferenceType distinguishes the two payment slip variants.
type ReferenceType string

const (
	// ReferenceTypeQRR is a structured reference, valid only against QR-IBANs.
	ReferenceTypeQRR ReferenceType = "QRR"
	// ReferenceTypeNON carries only a free-text message.
	ReferenceTypeNON ReferenceType = "NON"
)

// Party is one side of the payment.
type Party struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode int    `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// Payload is the wire object handed to the document renderer. All fields are
// pre-formatted; the renderer never recomputes anything.
type Payload struct {
	Creditor      Party           `json:"creditor"`
	CreditorIBAN  string          `json:"creditor_iban"`
	Debtor        Party           `json:"debtor"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      enums.Currency  `json:"currency"`
	ReferenceType ReferenceType   `json:"reference_type"`
	Reference     string          `json:"reference,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// Encode derives the payment payload for an invoice. A structured QRR
// reference is emitted only when the creditor IBAN is a QR-IBAN; a plain IBAN
// gets a free-text message instead, since a structured reference against it
// would render an unscannable slip.
func Encode(org *models.Organization, member *models.Member, inv *models.Invoice) (*Payload, error) {
	if org == nil || member == nil || inv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization, member and invoice are required")
	}
	iban := NormalizeIBAN(org.IBAN)
	if iban == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "organization has no creditor IBAN configured")
	}
	if !inv.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", inv.Currency))
	}

	payload := &Payload{
		Creditor: Party{
			Name:       org.PayeeName,
			Street:     org.PayeeStreet,
			PostalCode: org.PayeePostalCode,
			City:       org.PayeeCity,
			Country:    "CH",
		},
		CreditorIBAN: iban,
		Debtor: Party{
			Name:    member.Name,
			Country: "CH",
		},
		Amount:   inv.Total.Round(2),
		Currency: inv.Currency,
	}

	if IsQRIBAN(iban) {
		reference, err := BuildQRReference(inv.Number)
		if err != nil {
			return nil, err
		}
		payload.ReferenceType = ReferenceTypeQRR
		payload.Reference = reference
		return payload, nil
	}

	payload.ReferenceType = ReferenceTypeNON
	payload.Message = fmt.Sprintf("Invoice %s", inv.Number)
	return payload, nil
}

// BuildQRReference turns an invoice number into a 27-digit QRR reference:
// the number's digits zero-padded to 26 (or truncated to the last 26), plus
// the Mod-10 recursive check digit.
func BuildQRReference(invoiceNumber string) (string, error) {
	digits := digitsOf(invoiceNumber)
	if digits == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invoice number contains no digits")
	}
	if len(digits) > qrReferenceDigits {
		digits = digits[len(digits)-qrReferenceDigits:]
	}
	base := strings.Repeat("0", qrReferenceDigits-len(digits)) + digits
	check, err := Mod10CheckDigit(base)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "computing reference check digit")
	}
	return fmt.Sprintf("%s%d", base, check), nil
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
