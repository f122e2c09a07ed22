package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fatflowers/gymdesk/internal/app/service/inventory"
	"github.com/fatflowers/gymdesk/internal/platform/store"
)

type CancelSaleRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// @Summary      List products
// @Tags         Inventory
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespProducts
// @Router       /api/v1/products [get]
func ApiListProducts(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := svc.ListProducts(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, products)
	}
}

// @Summary      Get product
// @Tags         Inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Success      200  {object}  handlers.RespProduct
// @Router       /api/v1/products/{id} [get]
func ApiGetProduct(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, p)
	}
}

// @Summary      Create product
// @Tags         Inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body inventory.ProductInput true "Product"
// @Success      200  {object}  handlers.RespProduct
// @Router       /api/v1/products [post]
func ApiCreateProduct(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inventory.ProductInput
		if !bindJSON(c, &req) {
			return
		}
		p, err := svc.CreateProduct(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, p)
	}
}

// @Summary      Update product
// @Tags         Inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Param        request body inventory.ProductInput true "Product"
// @Success      200  {object}  handlers.RespProduct
// @Router       /api/v1/products/{id} [put]
func ApiUpdateProduct(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inventory.ProductInput
		if !bindJSON(c, &req) {
			return
		}
		p, err := svc.UpdateProduct(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, p)
	}
}

// @Summary      Delete product
// @Tags         Inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/products/{id} [delete]
func ApiDeleteProduct(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		ok[any](c, nil)
	}
}

// @Summary      Recent sales
// @Description  The newest sales first.
// @Tags         Sales
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSales
// @Router       /api/v1/sales [get]
func ApiRecentSales(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sales, err := svc.RecentSales(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, sales)
	}
}

// @Summary      Record sale
// @Description  Takes the quantity out of stock at the product's current price. Refused when stock is insufficient.
// @Tags         Sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body inventory.SaleInput true "Sale"
// @Success      200  {object}  handlers.RespSale
// @Router       /api/v1/sales [post]
func ApiRecordSale(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inventory.SaleInput
		if !bindJSON(c, &req) {
			return
		}
		sale, err := svc.RecordSale(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, sale)
	}
}

// @Summary      Cancel sale
// @Description  Deletes the sale and restores its quantity to stock.
// @Tags         Sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Sale ID"
// @Param        request body handlers.CancelSaleRequest false "Optional product and quantity check"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/sales/{id}/cancel [post]
func ApiCancelSale(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CancelSaleRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		in := inventory.CancelSaleInput{SaleID: c.Param("id"), ProductID: req.ProductID, Quantity: req.Quantity}
		if err := svc.CancelSale(c.Request.Context(), in); err != nil {
			fail(c, err)
			return
		}
		ok[any](c, nil)
	}
}

// @Summary      Scan sales
// @Description  Retrieves a paginated and filterable list of all sales.
// @Tags         Sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body store.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanSales
// @Router       /api/v1/sales/scan [post]
func ApiScanSales(svc *inventory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req store.ScanRequest
		if !bindJSON(c, &req) {
			return
		}
		res, err := svc.ScanSales(c.Request.Context(), &req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

func RegisterInventoryRoutes(r gin.IRouter, svc *inventory.Service) {
	r.GET("/products", ApiListProducts(svc))
	r.POST("/products", ApiCreateProduct(svc))
	r.GET("/products/:id", ApiGetProduct(svc))
	r.PUT("/products/:id", ApiUpdateProduct(svc))
	r.DELETE("/products/:id", ApiDeleteProduct(svc))
	r.GET("/sales", ApiRecentSales(svc))
	r.POST("/sales", ApiRecordSale(svc))
	r.POST("/sales/scan", ApiScanSales(svc))
	r.POST("/sales/:id/cancel", ApiCancelSale(svc))
}
