package server

import (
	"github.com/gin-gonic/gin"

	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
)

type plansResponse struct {
	Catalog            catalogdomain.Catalog `json:"catalog"`
	CurrentPlanID      string                `json:"current_plan_id,omitempty"`
	MonthlyCreditLimit *int64                `json:"monthly_credit_limit,omitempty"`
	Unlimited          bool                  `json:"unlimited,omitempty"`
}

// @Summary      List Plans
// @Description  Resolved plan catalog plus the caller's effective limit
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  plansResponse
// @Router       /billing/plans [get]
func (s *Server) GetPlans(c *gin.Context) {
	catalog, err := s.catalogSvc.Resolve(c.Request.Context(), false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := plansResponse{Catalog: catalog}
	if account := s.accountFromContext(c); account != nil {
		plan, err := catalog.Plan(account.PlanID)
		if err != nil {
			// Stale or handcrafted plan ids degrade to the free tier.
			plan, _ = catalog.Plan(catalogdomain.PlanFree)
		}
		limit := catalogdomain.MonthlyCreditLimit(account, plan)
		resp.CurrentPlanID = account.PlanID
		resp.MonthlyCreditLimit = &limit
		resp.Unlimited = limit == catalogdomain.Unlimited
	}
	respondData(c, resp)
}

// @Summary      Current Usage
// @Description  Credit usage snapshot for the current billing period
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usagedomain.Snapshot
// @Router       /billing/usage [get]
func (s *Server) GetUsage(c *gin.Context) {
	account := s.accountFromContext(c)

	snap, err := s.usageSvc.CurrentSnapshot(c.Request.Context(), account)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, snap)
}

// @Summary      Payment History
// @Description  Recent gateway transactions for the caller
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  paymentdomain.Transaction
// @Router       /billing/payments [get]
func (s *Server) GetPaymentHistory(c *gin.Context) {
	account := s.accountFromContext(c)

	txns, err := s.paymentSvc.History(c.Request.Context(), account.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, txns)
}
