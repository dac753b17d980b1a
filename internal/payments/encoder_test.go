package payments

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
)

func TestMod10CheckDigit_PublishedVector(t *testing.T) {
	// Swiss QR-bill implementation guidelines example: the 26-digit base of
	// reference 21 00000 00003 13947 1430 09017 reduces to check digit 7.
	check, err := Mod10CheckDigit("21000000000313947143000901")
	require.NoError(t, err)
	assert.Equal(t, 7, check)
}

func TestMod10CheckDigit_ZeroPaddedInvoiceDigits(t *testing.T) {
	check, err := Mod10CheckDigit(strings.Repeat("0", 23) + "123")
	require.NoError(t, err)

	reference, err := BuildQRReference("123")
	require.NoError(t, err)
	assert.Len(t, reference, 27)
	assert.Equal(t, byte('0'+byte(check)), reference[26])
	assert.True(t, ValidateQRReference(reference))
}

func TestMod10CheckDigit_RejectsNonDigits(t *testing.T) {
	_, err := Mod10CheckDigit("12a4")
	assert.Error(t, err)
}

func TestValidateQRReference(t *testing.T) {
	assert.True(t, ValidateQRReference("210000000003139471430009017"))
	assert.False(t, ValidateQRReference("210000000003139471430009018"))
	assert.False(t, ValidateQRReference("1234"))
}

func TestIsQRIBAN(t *testing.T) {
	assert.True(t, IsQRIBAN("CH44 3099 9123 0008 8901 2"))
	assert.True(t, IsQRIBAN("CH4431999123000889012"))
	assert.False(t, IsQRIBAN("CH9300762011623852957"), "plain IBAN with IID outside 30000..31999")
	assert.False(t, IsQRIBAN("DE89370400440532013000"))
	assert.False(t, IsQRIBAN(""))
}

func TestBuildQRReference_TruncatesLongNumbers(t *testing.T) {
	reference, err := BuildQRReference(strings.Repeat("9", 40))
	require.NoError(t, err)
	assert.Len(t, reference, 27)
	assert.Equal(t, strings.Repeat("9", 26), reference[:26])
	assert.True(t, ValidateQRReference(reference))
}

func TestEncode_QRIBANEmitsStructuredReference(t *testing.T) {
	org := &models.Organization{
		PayeeName:       "EnergieGemeinschaft Seeblick",
		PayeeStreet:     "Dorfstrasse 12",
		PayeePostalCode: 8810,
		PayeeCity:       "Horgen",
		IBAN:            "CH44 3099 9123 0008 8901 2",
	}
	member := &models.Member{Name: "Anna Muster"}
	inv := &models.Invoice{
		Number:   "2024-03-0042",
		Total:    decimal.RequireFromString("31.35"),
		Currency: enums.CurrencyCHF,
	}

	payload, err := Encode(org, member, inv)
	require.NoError(t, err)

	assert.Equal(t, ReferenceTypeQRR, payload.ReferenceType)
	assert.Len(t, payload.Reference, 27)
	assert.True(t, ValidateQRReference(payload.Reference))
	assert.Contains(t, payload.Reference, "2024030042")
	assert.Empty(t, payload.Message)
	assert.Equal(t, "31.35", payload.Amount.StringFixed(2))
}

func TestEncode_PlainIBANNeverEmitsStructuredReference(t *testing.T) {
	org := &models.Organization{
		PayeeName: "EnergieGemeinschaft Seeblick",
		IBAN:      "CH93 0076 2011 6238 5295 7",
	}
	member := &models.Member{Name: "Anna Muster"}
	inv := &models.Invoice{
		Number:   "2024-03-0042",
		Total:    decimal.RequireFromString("100.00"),
		Currency: enums.CurrencyEUR,
	}

	payload, err := Encode(org, member, inv)
	require.NoError(t, err)

	assert.Equal(t, ReferenceTypeNON, payload.ReferenceType)
	assert.Empty(t, payload.Reference)
	assert.Equal(t, "Invoice 2024-03-0042", payload.Message)
}

func TestEncode_MissingIBANIsConfigurationError(t *testing.T) {
	org := &models.Organization{PayeeName: "Org"}
	member := &models.Member{Name: "Anna"}
	inv := &models.Invoice{Number: "2024-01-0001", Currency: enums.CurrencyCHF}

	_, err := Encode(org, member, inv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIGURATION_ERROR")
}
