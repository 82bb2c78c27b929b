package payu

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSalt = "xK9mQ2salt"

func signedResponse(t *testing.T, mutate func(*Response)) Response {
	t.Helper()
	r := Response{
		Key:         "merchant_key",
		TxnID:       "CG1234567890",
		Amount:      "499.00",
		ProductInfo: "starter:monthly",
		Firstname:   "Asha",
		Email:       "asha@example.com",
		Status:      "success",
		UDF1:        "987654321",
		MihPayID:    "403993715527",
		Mode:        "CC",
		BankRefNum:  "112233",
	}
	if mutate != nil {
		mutate(&r)
	}

	parts := []string{
		testSalt, r.Status,
		"", "", "", "", "",
		r.UDF5, r.UDF4, r.UDF3, r.UDF2, r.UDF1,
		r.Email, r.Firstname, r.ProductInfo, r.Amount, r.TxnID, r.Key,
	}
	sum := sha512.Sum512([]byte(strings.Join(parts, "|")))
	r.Hash = hex.EncodeToString(sum[:])
	return r
}

func TestVerifyResponseHash_RoundTrip(t *testing.T) {
	r := signedResponse(t, nil)
	assert.NoError(t, VerifyResponseHash(testSalt, r))
}

func TestVerifyResponseHash_UppercaseDigestAccepted(t *testing.T) {
	r := signedResponse(t, nil)
	r.Hash = strings.ToUpper(r.Hash)
	assert.NoError(t, VerifyResponseHash(testSalt, r))
}

func TestVerifyResponseHash_FlippedHashCharRejected(t *testing.T) {
	r := signedResponse(t, nil)
	flipped := []byte(r.Hash)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	r.Hash = string(flipped)
	assert.ErrorIs(t, VerifyResponseHash(testSalt, r), paymentdomain.ErrInvalidSignature)
}

func TestVerifyResponseHash_TamperedFieldsRejected(t *testing.T) {
	mutations := map[string]func(*Response){
		"status":      func(r *Response) { r.Status = "failure" },
		"amount":      func(r *Response) { r.Amount = "1.00" },
		"txnid":       func(r *Response) { r.TxnID = "CG0000000000" },
		"email":       func(r *Response) { r.Email = "evil@example.com" },
		"firstname":   func(r *Response) { r.Firstname = "Mallory" },
		"productinfo": func(r *Response) { r.ProductInfo = "pro:yearly" },
		"udf1":        func(r *Response) { r.UDF1 = "1" },
	}
	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			r := signedResponse(t, nil)
			mutate(&r) // tamper after signing
			assert.ErrorIs(t, VerifyResponseHash(testSalt, r), paymentdomain.ErrInvalidSignature)
		})
	}
}

func TestVerifyResponseHash_WrongSaltRejected(t *testing.T) {
	r := signedResponse(t, nil)
	assert.ErrorIs(t, VerifyResponseHash("other_salt", r), paymentdomain.ErrInvalidSignature)
}

func TestVerifyResponseHash_MissingSalt(t *testing.T) {
	r := signedResponse(t, nil)
	assert.ErrorIs(t, VerifyResponseHash("", r), paymentdomain.ErrSaltMissing)
	assert.ErrorIs(t, VerifyResponseHash("  ", r), paymentdomain.ErrSaltMissing)
}

func TestVerifyResponseHash_AdditionalChargesVariant(t *testing.T) {
	r := signedResponse(t, nil)
	r.AdditionalCharges = "10.00"

	parts := []string{
		r.AdditionalCharges,
		testSalt, r.Status,
		"", "", "", "", "",
		r.UDF5, r.UDF4, r.UDF3, r.UDF2, r.UDF1,
		r.Email, r.Firstname, r.ProductInfo, r.Amount, r.TxnID, r.Key,
	}
	sum := sha512.Sum512([]byte(strings.Join(parts, "|")))
	r.Hash = hex.EncodeToString(sum[:])

	assert.NoError(t, VerifyResponseHash(testSalt, r))
}

func TestRequestHash_Deterministic(t *testing.T) {
	r := Response{
		Key:         "merchant_key",
		TxnID:       "CG42",
		Amount:      "1499.00",
		ProductInfo: "pro:monthly",
		Firstname:   "Asha",
		Email:       "asha@example.com",
		UDF1:        "42",
	}
	h1 := RequestHash(testSalt, r)
	h2 := RequestHash(testSalt, r)
	require.Equal(t, h1, h2)
	assert.Len(t, h1, 128)

	r.Amount = "1.00"
	assert.NotEqual(t, h1, RequestHash(testSalt, r))
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"success", paymentdomain.StatusSuccess},
		{"SUCCESS", paymentdomain.StatusSuccess},
		{" Success ", paymentdomain.StatusSuccess},
		{"pending", paymentdomain.StatusPending},
		{"in progress", paymentdomain.StatusPending},
		{"cancelled", paymentdomain.StatusCancelled},
		{"canceled", paymentdomain.StatusCancelled},
		{"failure", paymentdomain.StatusFailed},
		{"dropped", paymentdomain.StatusFailed},
		{"", paymentdomain.StatusFailed},
		{"anything else", paymentdomain.StatusFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestFromForm_AltKeys(t *testing.T) {
	r := FromForm(map[string]string{
		"txnid":         "CG1",
		"hash":          "h",
		"bankRefNum":    "b1",
		"error_Message": "declined",
	})
	assert.Equal(t, "CG1", r.TxnID)
	assert.Equal(t, "b1", r.BankRefNum)
	assert.Equal(t, "declined", r.ErrorMessage)
}
