package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fatflowers/gymdesk/internal/app/service/statistics"
)

// @Summary      Dashboard
// @Description  Subscriber counts, outstanding balance and this month's revenue.
// @Tags         Dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespDashboard
// @Router       /api/v1/dashboard [get]
func ApiDashboard(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.Dashboard(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, d)
	}
}

func RegisterDashboardRoutes(r gin.IRouter, svc *statistics.Service) {
	r.GET("/dashboard", ApiDashboard(svc))
}
