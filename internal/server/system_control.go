package server

import (
	"github.com/gin-gonic/gin"
)

// @Summary      Get System Control Flags
// @Description  Read the global kill-switch flag set
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  syscontroldomain.State
// @Router       /admin/system-control [get]
func (s *Server) GetSystemControl(c *gin.Context) {
	state, err := s.controlSvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, state)
}

// @Summary      Patch System Control Flags
// @Description  Partially update the global kill-switch flag set
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body map[string]bool true "Flag subset"
// @Success      200  {object}  syscontroldomain.State
// @Router       /admin/system-control [patch]
func (s *Server) PatchSystemControl(c *gin.Context) {
	var flags map[string]any
	if err := c.ShouldBindJSON(&flags); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(flags) == 0 {
		AbortWithError(c, newValidationError("body", "empty_patch", "at least one flag is required"))
		return
	}

	account := s.accountFromContext(c)
	state, err := s.controlSvc.Patch(c.Request.Context(), flags, account.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, state)
}
