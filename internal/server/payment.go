package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	"github.com/nivalabs/creditgate/internal/payment/payu"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
)

type createCheckoutRequest struct {
	PlanID       string `json:"plan_id" binding:"required"`
	BillingCycle string `json:"billing_cycle"`
	Firstname    string `json:"firstname"`
}

// @Summary      Create Checkout
// @Description  Start a gateway checkout for a paid plan
// @Tags         payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createCheckoutRequest true "Checkout Request"
// @Success      200  {object}  paymentdomain.CheckoutSession
// @Router       /payment/payu/checkout [post]
func (s *Server) CreateCheckout(c *gin.Context) {
	account := s.accountFromContext(c)

	if _, err := s.controlSvc.Enforce(c.Request.Context(), account, syscontroldomain.CapabilityPayments); err != nil {
		AbortWithError(c, err)
		return
	}

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.paymentSvc.InitiateCheckout(c.Request.Context(), paymentdomain.CheckoutRequest{
		UserID:       account.ID,
		Email:        account.Email,
		Firstname:    req.Firstname,
		PlanID:       req.PlanID,
		BillingCycle: req.BillingCycle,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, session)
}

// PayUWebhook is the server-to-server callback. The gateway authenticates
// itself through the response hash, not a session.
//
// @Summary      PayU Webhook
// @Tags         payment
// @Accept       x-www-form-urlencoded,json
// @Produce      json
// @Success      200  {object}  paymentdomain.CallbackResult
// @Router       /payment/payu/webhook [post]
func (s *Server) PayUWebhook(c *gin.Context) {
	s.processCallback(c, paymentdomain.SourceWebhook)
}

// PayUValidate is the browser-relayed callback posted by the result page.
//
// @Summary      PayU Validate
// @Tags         payment
// @Accept       x-www-form-urlencoded,json
// @Produce      json
// @Success      200  {object}  paymentdomain.CallbackResult
// @Router       /payment/payu/validate [post]
func (s *Server) PayUValidate(c *gin.Context) {
	s.processCallback(c, paymentdomain.SourceValidate)
}

func (s *Server) processCallback(c *gin.Context, source string) {
	result := s.paymentSvc.ProcessCallback(c.Request.Context(), callbackPayload(c), source)
	c.JSON(result.StatusCode, result)
}

// returnParamKeys is the allow-list of gateway fields forwarded to the
// browser result page. Everything else in the callback is dropped.
var returnParamKeys = []string{
	"txnid", "status", "amount", "productinfo", "firstname", "email",
	"mihpayid", "mode", "bank_ref_num", "error_Message", "udf1",
}

// PayUReturn receives the browser redirect after checkout and forwards the
// shopper to the configured result page. No hash validation happens here;
// the transaction is reconciled by the webhook and validate routes.
func (s *Server) PayUReturn(c *gin.Context) {
	payload := formPayload(c)
	for key, values := range c.Request.URL.Query() {
		if _, ok := payload[key]; !ok && len(values) > 0 {
			payload[key] = values[0]
		}
	}

	target, err := url.Parse(s.cfg.PayU.ResultURL)
	if err != nil || s.cfg.PayU.ResultURL == "" {
		AbortWithError(c, newValidationError("result_url", "not_configured", "payment result page is not configured"))
		return
	}

	query := target.Query()
	for _, key := range returnParamKeys {
		if v, ok := payload[key]; ok && v != "" {
			query.Set(key, v)
		}
	}
	query.Set("result", payu.NormalizeStatus(payload["status"]))
	target.RawQuery = query.Encode()

	c.Redirect(http.StatusSeeOther, target.String())
}

// callbackPayload flattens a gateway delivery into a string map. The
// gateway posts form-encoded bodies, but server-to-server relays deliver
// the same fields as JSON, so both encodings are accepted.
func callbackPayload(c *gin.Context) map[string]string {
	if c.ContentType() == "application/json" {
		return jsonPayload(c)
	}
	return formPayload(c)
}

func jsonPayload(c *gin.Context) map[string]string {
	payload := map[string]string{}
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		return payload
	}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			payload[key] = v
		case float64:
			payload[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			payload[key] = strconv.FormatBool(v)
		}
	}
	return payload
}

func formPayload(c *gin.Context) map[string]string {
	payload := map[string]string{}
	if err := c.Request.ParseForm(); err != nil {
		return payload
	}
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	return payload
}
