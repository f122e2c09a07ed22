package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/gymdesk/internal/app/service/activity"
	"github.com/fatflowers/gymdesk/pkg/apperr"
)

// @Summary      Activity log
// @Description  The latest domain events, newest first.
// @Tags         Dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Maximum entries (default 50)"
// @Success      200  {object}  handlers.RespActivity
// @Router       /api/v1/activity [get]
func ApiActivity(svc *activity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := activity.DefaultLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				fail(c, apperr.Validation("invalid input").WithDetail("limit: must be a positive integer"))
				return
			}
			limit = n
		}
		entries, err := svc.Recent(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, entries)
	}
}

func RegisterActivityRoutes(r gin.IRouter, svc *activity.Service) {
	r.GET("/activity", ApiActivity(svc))
}
