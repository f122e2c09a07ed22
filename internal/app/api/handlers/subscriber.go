package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fatflowers/gymdesk/internal/app/service/membership"
	"github.com/fatflowers/gymdesk/internal/platform/store"
)

// SubscriberRequest is the body of enroll and edit. Amount is ignored by
// edit.
type SubscriberRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date" example:"2024-03-01"`
	Amount    int64  `json:"amount"`
}

type RenewRequest struct {
	StartDate string `json:"start_date" example:"2024-03-01"`
	Amount    int64  `json:"amount"`
}

type PaymentRequest struct {
	Amount  int64  `json:"amount"`
	Comment string `json:"comment"`
}

// @Summary      List subscribers
// @Description  Ordered by name, with status and remaining balance per row.
// @Tags         Subscribers
// @Produce      json
// @Security     BearerAuth
// @Param        search query string false "Case-insensitive name filter"
// @Success      200  {object}  handlers.RespSubscribers
// @Router       /api/v1/subscribers [get]
func ApiListSubscribers(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := svc.List(c.Request.Context(), c.Query("search"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, views)
	}
}

// @Summary      Get subscriber
// @Tags         Subscribers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Success      200  {object}  handlers.RespSubscriber
// @Router       /api/v1/subscribers/{id} [get]
func ApiGetSubscriber(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, v)
	}
}

// @Summary      Enroll subscriber
// @Description  Creates the subscriber with a one-month contract and records the initial payment when amount > 0.
// @Tags         Subscribers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handlers.SubscriberRequest true "Subscriber"
// @Success      200  {object}  handlers.RespSubscriber
// @Router       /api/v1/subscribers [post]
func ApiEnroll(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubscriberRequest
		if !bindJSON(c, &req) {
			return
		}
		start, err := parseDay("start_date", req.StartDate)
		if err != nil {
			fail(c, err)
			return
		}
		sub, err := svc.Enroll(c.Request.Context(), membership.EnrollInput{Name: req.Name, StartDate: start, Amount: req.Amount})
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, sub)
	}
}

// @Summary      Edit subscriber
// @Description  Renames the subscriber and moves the active contract; the end date is re-derived.
// @Tags         Subscribers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Param        request body handlers.SubscriberRequest true "Subscriber"
// @Success      200  {object}  handlers.RespSubscriber
// @Router       /api/v1/subscribers/{id} [put]
func ApiEditSubscriber(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubscriberRequest
		if !bindJSON(c, &req) {
			return
		}
		start, err := parseDay("start_date", req.StartDate)
		if err != nil {
			fail(c, err)
			return
		}
		sub, err := svc.Edit(c.Request.Context(), c.Param("id"), membership.EditInput{Name: req.Name, StartDate: start})
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, sub)
	}
}

// @Summary      Delete subscriber
// @Description  Deletes the subscriber with all of its payments and sales in one batch.
// @Tags         Subscribers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscribers/{id} [delete]
func ApiDeleteSubscriber(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		ok[any](c, nil)
	}
}

// @Summary      Renew subscription
// @Tags         Subscribers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Param        request body handlers.RenewRequest true "Renewal"
// @Success      200  {object}  handlers.RespSubscriber
// @Router       /api/v1/subscribers/{id}/renew [post]
func ApiRenew(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RenewRequest
		if !bindJSON(c, &req) {
			return
		}
		start, err := parseDay("start_date", req.StartDate)
		if err != nil {
			fail(c, err)
			return
		}
		sub, err := svc.Renew(c.Request.Context(), membership.RenewInput{SubscriberID: c.Param("id"), StartDate: start, Amount: req.Amount})
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, sub)
	}
}

// @Summary      Record payment
// @Description  Credits a partial payment to the active contract. Overpayments are refused.
// @Tags         Subscribers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Param        request body handlers.PaymentRequest true "Payment"
// @Success      200  {object}  handlers.RespPayment
// @Router       /api/v1/subscribers/{id}/payments [post]
func ApiRecordPayment(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentRequest
		if !bindJSON(c, &req) {
			return
		}
		p, err := svc.RecordPayment(c.Request.Context(), membership.PaymentInput{SubscriberID: c.Param("id"), Amount: req.Amount, Comment: req.Comment})
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, p)
	}
}

// @Summary      Payment history
// @Tags         Subscribers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Success      200  {object}  handlers.RespPayments
// @Router       /api/v1/subscribers/{id}/payments [get]
func ApiListPayments(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payments, err := svc.Payments(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, payments)
	}
}

// @Summary      Contract history
// @Tags         Subscribers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Subscriber ID"
// @Success      200  {object}  handlers.RespContracts
// @Router       /api/v1/subscribers/{id}/contracts [get]
func ApiListContracts(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		contracts, err := svc.Contracts(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, contracts)
	}
}

// @Summary      Scan payments
// @Description  Retrieves a paginated and filterable list of all payments.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body store.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanPayments
// @Router       /api/v1/payments/scan [post]
func ApiScanPayments(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req store.ScanRequest
		if !bindJSON(c, &req) {
			return
		}
		res, err := svc.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

func RegisterSubscriberRoutes(r gin.IRouter, svc *membership.Service) {
	r.GET("/subscribers", ApiListSubscribers(svc))
	r.POST("/subscribers", ApiEnroll(svc))
	r.GET("/subscribers/:id", ApiGetSubscriber(svc))
	r.PUT("/subscribers/:id", ApiEditSubscriber(svc))
	r.DELETE("/subscribers/:id", ApiDeleteSubscriber(svc))
	r.POST("/subscribers/:id/renew", ApiRenew(svc))
	r.GET("/subscribers/:id/payments", ApiListPayments(svc))
	r.POST("/subscribers/:id/payments", ApiRecordPayment(svc))
	r.GET("/subscribers/:id/contracts", ApiListContracts(svc))
	r.POST("/payments/scan", ApiScanPayments(svc))
}
