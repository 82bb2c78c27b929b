package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
)

type patchAccountBillingRequest struct {
	PlanID                *string `json:"plan_id"`
	RateLimitBonusCredits *int64  `json:"rate_limit_bonus_credits"`
	CustomMonthlyCredits  *int64  `json:"custom_monthly_credits"`
	ClearCustomCredits    bool    `json:"clear_custom_credits"`
	IsUnlimitedAccess     *bool   `json:"is_unlimited_access"`
	DeveloperModeEnabled  *bool   `json:"developer_mode_enabled"`
}

// @Summary      Patch Account Billing Fields
// @Description  Admin-only partial update of an account's billing knobs
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                     true  "Account ID"
// @Param        request  body  patchAccountBillingRequest true  "Billing field subset"
// @Success      200  {object}  accountdomain.Account
// @Router       /admin/accounts/{id}/billing [patch]
func (s *Server) PatchAccountBilling(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "account id is malformed"))
		return
	}

	var req patchAccountBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patch := map[string]any{}
	if req.PlanID != nil {
		if !catalogdomain.IsKnownPlanID(*req.PlanID) {
			AbortWithError(c, catalogdomain.ErrUnknownPlan)
			return
		}
		patch["plan_id"] = *req.PlanID
	}
	if req.RateLimitBonusCredits != nil {
		patch["rate_limit_bonus_credits"] = *req.RateLimitBonusCredits
	}
	if req.CustomMonthlyCredits != nil {
		patch["custom_monthly_credits"] = *req.CustomMonthlyCredits
	} else if req.ClearCustomCredits {
		patch["custom_monthly_credits"] = nil
	}
	if req.IsUnlimitedAccess != nil {
		patch["is_unlimited_access"] = *req.IsUnlimitedAccess
	}
	if req.DeveloperModeEnabled != nil {
		patch["developer_mode_enabled"] = *req.DeveloperModeEnabled
	}
	if len(patch) == 0 {
		AbortWithError(c, newValidationError("body", "empty_patch", "at least one billing field is required"))
		return
	}

	ctx := c.Request.Context()
	if err := s.accountRepo.UpdateBillingFields(ctx, s.db, id, patch); err != nil {
		AbortWithError(c, err)
		return
	}

	account, err := s.accountRepo.FindByID(ctx, s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, account)
}
