package handlers

import (
	"github.com/fatflowers/gymdesk/internal/app/service/admin"
	"github.com/fatflowers/gymdesk/internal/app/service/inventory"
	"github.com/fatflowers/gymdesk/internal/app/service/membership"
	"github.com/fatflowers/gymdesk/internal/app/service/statistics"
	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/pkg/response"
)

// Envelope types for the swagger docs. Handlers build them through
// response.OKT.

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    response.ErrorBody       `json:"data"`
}

type RespLogin struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    admin.LoginResult        `json:"data"`
}

type RespSession struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    identity.Session         `json:"data"`
}

type RespAdmin struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Administrator     `json:"data"`
}

type RespAdmins struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Administrator   `json:"data"`
}

type RespSubscriber struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    membership.SubscriberView `json:"data"`
}

type RespSubscribers struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    []membership.SubscriberView `json:"data"`
}

type RespContracts struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Contract        `json:"data"`
}

type RespPayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Payment           `json:"data"`
}

type RespPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Payment         `json:"data"`
}

type RespScanPayments struct {
	Code    response.APIResponseCode        `json:"code"`
	Message string                          `json:"message"`
	Data    membership.ScanPaymentsResponse `json:"data"`
}

type RespProduct struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Product           `json:"data"`
}

type RespProducts struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Product         `json:"data"`
}

type RespSale struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Sale              `json:"data"`
}

type RespSales struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Sale            `json:"data"`
}

type RespScanSales struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    inventory.ScanSalesResponse `json:"data"`
}

type RespDashboard struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.Dashboard     `json:"data"`
}

type RespActivity struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.ActivityLog     `json:"data"`
}
