package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
)

type generateAIRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type createDeploymentRequest struct {
	Name string `json:"name" binding:"required"`
}

type featureResponse struct {
	JobID string                     `json:"job_id"`
	Usage *usagedomain.ConsumeResult `json:"usage"`
}

// @Summary      Generate AI Content
// @Description  Credit-gated AI generation endpoint
// @Tags         features
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body generateAIRequest true "Generation Request"
// @Success      200  {object}  featureResponse
// @Router       /ai/generate [post]
func (s *Server) GenerateAI(c *gin.Context) {
	var req generateAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.runGated(c, syscontroldomain.CapabilityAIGeneration, usagedomain.FeatureAIGeneration)
}

// @Summary      Create Deployment
// @Description  Credit-gated deployment endpoint
// @Tags         features
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createDeploymentRequest true "Deployment Request"
// @Success      200  {object}  featureResponse
// @Router       /deployments [post]
func (s *Server) CreateDeployment(c *gin.Context) {
	var req createDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.runGated(c, syscontroldomain.CapabilityDeployments, usagedomain.FeatureDeployment)
}

// runGated admits the request through the billing gate, then hands off to
// the feature worker. The credit is spent even if the downstream job later
// fails; there is no refund path.
func (s *Server) runGated(c *gin.Context, capability, feature string) {
	account := s.accountFromContext(c)

	res, err := s.gateSvc.Enforce(c.Request.Context(), account, capability, feature)
	if err != nil {
		if res != nil && res.Usage != nil {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": gin.H{
				"code":    "quota_exceeded",
				"message": "monthly credit limit reached",
				"usage":   res.Usage,
			}})
			return
		}
		AbortWithError(c, err)
		return
	}

	respondData(c, featureResponse{
		JobID: uuid.NewString(),
		Usage: res.Usage,
	})
}
