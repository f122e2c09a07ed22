package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/logctx"
	"github.com/fatflowers/gymdesk/pkg/response"
)

func ok[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, response.OKT(data))
}

// fail answers with the envelope matching err's kind. Store failures are
// logged with their cause, which never reaches the client.
func fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindStore {
		if l, found := c.Get(logctx.LoggerKey); found {
			if lg, isLogger := l.(*zap.SugaredLogger); isLogger {
				lg.Errorw("request failed", "err", err)
			}
		}
	}
	c.JSON(http.StatusOK, response.FromError(err))
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, apperr.Validation("malformed body").WithDetail("%s", err.Error()))
		return false
	}
	return true
}

// parseDay accepts a calendar date (2024-03-01) or a full RFC 3339 time.
func parseDay(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, apperr.Validation("invalid input").WithDetail("%s: is required", field)
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid input").WithDetail("%s: expected YYYY-MM-DD", field)
	}
	return t, nil
}
