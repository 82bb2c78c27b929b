package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
)

const contextAccountKey = "account"

// SessionRequired authenticates the bearer token and stores the resolved
// account on the gin context.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		account, err := s.authSvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextAccountKey, account)
		c.Next()
	}
}

// SessionOptional resolves the account when a valid bearer token is present
// and stays silent otherwise.
func (s *Server) SessionOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if account, err := s.authSvc.Authenticate(c.Request.Context(), parts[1]); err == nil {
				c.Set(contextAccountKey, account)
			}
		}
		c.Next()
	}
}

func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := s.accountFromContext(c)
		if account == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !account.IsAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// RateLimitByIP buckets anonymous endpoints by client address.
func (s *Server) RateLimitByIP(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.limiter.Allow(c.Request.Context(), scope, c.ClientIP(), limit, window); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RateLimitByAccount buckets authenticated endpoints by account id. It must
// run after SessionRequired.
func (s *Server) RateLimitByAccount(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := s.accountFromContext(c)
		key := c.ClientIP()
		if account != nil {
			key = account.ID.String()
		}
		if err := s.limiter.Allow(c.Request.Context(), scope, key, limit, window); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) accountFromContext(c *gin.Context) *accountdomain.Account {
	v, ok := c.Get(contextAccountKey)
	if !ok {
		return nil
	}
	account, _ := v.(*accountdomain.Account)
	return account
}
