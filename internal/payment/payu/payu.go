package payu

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
)

// Response carries the gateway callback fields that participate in hash
// verification plus the audit metadata we persist.
type Response struct {
	Key         string
	TxnID       string
	Amount      string
	ProductInfo string
	Firstname   string
	Email       string
	Status      string
	Hash        string

	UDF1 string
	UDF2 string
	UDF3 string
	UDF4 string
	UDF5 string

	MihPayID          string
	Mode              string
	BankRefNum        string
	AdditionalCharges string
	ErrorMessage      string
}

// FromForm maps a decoded form/JSON payload onto a Response.
func FromForm(form map[string]string) Response {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := form[k]; ok && v != "" {
				return v
			}
		}
		return ""
	}
	return Response{
		Key:               get("key"),
		TxnID:             get("txnid"),
		Amount:            get("amount"),
		ProductInfo:       get("productinfo"),
		Firstname:         get("firstname"),
		Email:             get("email"),
		Status:            get("status"),
		Hash:              get("hash"),
		UDF1:              get("udf1"),
		UDF2:              get("udf2"),
		UDF3:              get("udf3"),
		UDF4:              get("udf4"),
		UDF5:              get("udf5"),
		MihPayID:          get("mihpayid"),
		Mode:              get("mode"),
		BankRefNum:        get("bank_ref_num", "bankRefNum"),
		AdditionalCharges: get("additionalCharges", "additional_charges"),
		ErrorMessage:      get("error_Message", "error_message", "error"),
	}
}

// RequestHash computes the forward checkout hash:
// sha512(key|txnid|amount|productinfo|firstname|email|udf1..udf5||||||salt).
func RequestHash(salt string, r Response) string {
	parts := []string{
		r.Key, r.TxnID, r.Amount, r.ProductInfo, r.Firstname, r.Email,
		r.UDF1, r.UDF2, r.UDF3, r.UDF4, r.UDF5,
		"", "", "", "", "",
		salt,
	}
	return sha512Hex(strings.Join(parts, "|"))
}

// responseHash computes the reverse verification hash the gateway signs its
// callbacks with: the request fields in reverse order, prefixed by the salt
// and the transaction status (and additional charges when present):
// sha512([additionalCharges|]salt|status||||||udf5..udf1|email|firstname|productinfo|amount|txnid|key).
func responseHash(salt string, r Response, withAdditionalCharges bool) string {
	parts := []string{
		salt, r.Status,
		"", "", "", "", "",
		r.UDF5, r.UDF4, r.UDF3, r.UDF2, r.UDF1,
		r.Email, r.Firstname, r.ProductInfo, r.Amount, r.TxnID, r.Key,
	}
	if withAdditionalCharges {
		parts = append([]string{r.AdditionalCharges}, parts...)
	}
	return sha512Hex(strings.Join(parts, "|"))
}

// VerifyResponseHash validates the callback's authenticity against the
// merchant salt. Matching is constant-time over the lower-cased hex digest.
func VerifyResponseHash(salt string, r Response) error {
	if strings.TrimSpace(salt) == "" {
		return paymentdomain.ErrSaltMissing
	}
	supplied := strings.ToLower(strings.TrimSpace(r.Hash))
	if supplied == "" {
		return paymentdomain.ErrInvalidSignature
	}

	candidates := []string{responseHash(salt, r, false)}
	if r.AdditionalCharges != "" {
		candidates = append(candidates, responseHash(salt, r, true))
	}
	for _, expected := range candidates {
		if hmac.Equal([]byte(supplied), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

// NormalizeStatus maps the gateway's status vocabulary onto the four
// transaction states; anything unrecognized is treated as failed.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "captured":
		return paymentdomain.StatusSuccess
	case "pending", "in progress", "initiated":
		return paymentdomain.StatusPending
	case "cancelled", "canceled", "usercancelled", "user_cancelled":
		return paymentdomain.StatusCancelled
	default:
		return paymentdomain.StatusFailed
	}
}

func sha512Hex(payload string) string {
	sum := sha512.Sum512([]byte(payload))
	return hex.EncodeToString(sum[:])
}
