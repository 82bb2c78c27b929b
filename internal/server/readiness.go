package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type readyzResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Readyz reports dependency health. Redis is optional; a missing client is
// reported but does not flip readiness because the limiter fails open.
func (s *Server) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]string{}
	ready := true

	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "down"
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if s.rdb == nil {
		checks["redis"] = "not_configured"
	} else if s.rdb.Ping(ctx).Err() != nil {
		checks["redis"] = "down"
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, readyzResponse{Status: state, Checks: checks})
}
