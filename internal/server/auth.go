package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	PlanID    string `json:"plan_id"`
	IsAdmin   bool   `json:"is_admin"`
}

// @Summary      Sign Up
// @Description  Create an account and return a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body signUpRequest true "Sign Up Request"
// @Success      200  {object}  sessionResponse
// @Router       /auth/signup [post]
func (s *Server) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sess, err := s.authSvc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		Token:     sess.Token,
		AccountID: sess.Account.ID.String(),
		Email:     sess.Account.Email,
		PlanID:    sess.Account.PlanID,
		IsAdmin:   sess.Account.IsAdmin,
	})
}

// @Summary      Sign In
// @Description  Exchange credentials for a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body signInRequest true "Sign In Request"
// @Success      200  {object}  sessionResponse
// @Router       /auth/signin [post]
func (s *Server) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sess, err := s.authSvc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		Token:     sess.Token,
		AccountID: sess.Account.ID.String(),
		Email:     sess.Account.Email,
		PlanID:    sess.Account.PlanID,
		IsAdmin:   sess.Account.IsAdmin,
	})
}
