package payments

import (
	"fmt"
	"strings"
)

// mod10Table is the substitution table for the Swiss Mod-10 recursive
// checksum used by QRR payment references.
var mod10Table = [10]int{0, 9, 4, 6, 8, 2, 7, 1, 3, 5}

// Mod10CheckDigit computes the recursive Mod-10 check digit over a string of
// decimal digits.
func Mod10CheckDigit(digits string) (int, error) {
	carry := 0
	for i, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric character %q at position %d", r, i+1)
		}
		carry = mod10Table[(carry+int(r-'0'))%10]
	}
	return (10 - carry) % 10, nil
}

// ValidateQRReference reports whether a 27-digit QRR reference carries a
// correct trailing check digit.
func ValidateQRReference(reference string) bool {
	cleaned := strings.ReplaceAll(reference, " ", "")
	if len(cleaned) != qrReferenceLength {
		return false
	}
	check, err := Mod10CheckDigit(cleaned[:qrReferenceLength-1])
	if err != nil {
		return false
	}
	return check == int(cleaned[qrReferenceLength-1]-'0')
}
