package payments

import (
	"strconv"
	"strings"
)

const (
	// QR-IBANs carry an institution identifier (IID) in this range; only
	// those accounts accept structured QRR references.
	qrIIDMin = 30000
	qrIIDMax = 31999

	ibanLengthCH = 21
)

// NormalizeIBAN strips spaces and uppercases an IBAN for comparison.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}

// IsQRIBAN reports whether the IBAN's institution identifier (positions 5-9)
// falls inside the Swiss QR-IID range.
func IsQRIBAN(iban string) bool {
	cleaned := NormalizeIBAN(iban)
	if len(cleaned) != ibanLengthCH {
		return false
	}
	if !strings.HasPrefix(cleaned, "CH") && !strings.HasPrefix(cleaned, "LI") {
		return false
	}
	iid, err := strconv.Atoi(cleaned[4:9])
	if err != nil {
		return false
	}
	return iid >= qrIIDMin && iid <= qrIIDMax
}
