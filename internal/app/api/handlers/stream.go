package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/gymdesk/internal/app/service/live"
	"github.com/fatflowers/gymdesk/pkg/response"
)

const (
	sseSnapshot = "snapshot"
	sseError    = "error"
)

// serveStream writes every snapshot of h as a server-sent event until the
// client goes away or the watch ends. The watch is released on return.
func serveStream[T any](c *gin.Context, h *live.Handle[T]) {
	defer h.Close()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		v, open := <-h.C
		if !open {
			if err := h.Err(); err != nil {
				c.SSEvent(sseError, response.FromError(err))
			}
			return false
		}
		c.SSEvent(sseSnapshot, response.OKT(v))
		return true
	})
}

// @Summary      Stream subscribers
// @Description  Server-sent events: one snapshot of the subscriber list now and after every change.
// @Tags         Streams
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        search query string false "Case-insensitive name filter"
// @Success      200  {object}  handlers.RespSubscribers
// @Router       /api/v1/stream/subscribers [get]
func ApiStreamSubscribers(svc *live.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		serveStream(c, svc.Subscribers(c.Request.Context(), c.Query("search")))
	}
}

// @Summary      Stream contract history
// @Description  Server-sent events for one subscriber's contracts. Ends with an error event when the subscriber is deleted.
// @Tags         Streams
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Success      200  {object}  handlers.RespContracts
// @Router       /api/v1/stream/subscribers/{id}/contracts [get]
func ApiStreamContracts(svc *live.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		serveStream(c, svc.Contracts(c.Request.Context(), c.Param("id")))
	}
}

// @Summary      Stream products
// @Tags         Streams
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespProducts
// @Router       /api/v1/stream/products [get]
func ApiStreamProducts(svc *live.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		serveStream(c, svc.Products(c.Request.Context()))
	}
}

// @Summary      Stream recent sales
// @Tags         Streams
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSales
// @Router       /api/v1/stream/sales [get]
func ApiStreamSales(svc *live.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		serveStream(c, svc.Sales(c.Request.Context()))
	}
}

// @Summary      Stream administrators
// @Tags         Streams
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespAdmins
// @Router       /api/v1/stream/admins [get]
func ApiStreamAdmins(svc *live.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		serveStream(c, svc.Admins(c.Request.Context()))
	}
}

func RegisterStreamRoutes(r gin.IRouter, svc *live.Service) {
	r.GET("/stream/subscribers", ApiStreamSubscribers(svc))
	r.GET("/stream/subscribers/:id/contracts", ApiStreamContracts(svc))
	r.GET("/stream/products", ApiStreamProducts(svc))
	r.GET("/stream/sales", ApiStreamSales(svc))
	r.GET("/stream/admins", ApiStreamAdmins(svc))
}
