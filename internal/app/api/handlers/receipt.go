package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapspend/backend/internal/app/service/receipt"
	"github.com/snapspend/backend/pkg/response"
)

type createReceiptRequest struct {
	ImageURL    string  `json:"image_url" binding:"required"`
	HouseholdID *string `json:"household_id"`
}

// isClientError maps service sentinels to the bad-request envelope code.
func isClientError(err error) bool {
	return errors.Is(err, receipt.ErrReceiptNotFound) ||
		errors.Is(err, receipt.ErrReceiptDeleted) ||
		errors.Is(err, receipt.ErrAlreadyCompleted) ||
		errors.Is(err, receipt.ErrAlreadyProcessing)
}

func replyError(c *gin.Context, err error) {
	if isClientError(err) {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
}

// @Summary      Create receipt
// @Description  Registers an uploaded receipt image as a pending receipt.
// @Tags         Receipt
// @Accept       json
// @Produce      json
// @Param        request body createReceiptRequest true "Receipt creation request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/receipts [post]
func ApiCreateReceipt(svc *receipt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createReceiptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		rec, err := svc.CreatePending(c.Request.Context(), receipt.CreateReceiptRequest{
			UserID:      c.GetString("user_id"),
			HouseholdID: req.HouseholdID,
			ImageURL:    req.ImageURL,
		})
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rec))
	}
}

// @Summary      Process receipt
// @Description  Runs vision extraction and persists normalized financial data. Rejects completed receipts.
// @Tags         Receipt
// @Produce      json
// @Param        id path string true "Receipt ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/receipts/{id}/process [post]
func ApiProcessReceipt(svc *receipt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Process(c.Request.Context(), c.Param("id"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Reprocess receipt
// @Description  Re-enters a terminal receipt into processing (retry after failure, reanalyze after completion).
// @Tags         Receipt
// @Produce      json
// @Param        id path string true "Receipt ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/receipts/{id}/reprocess [post]
func ApiReprocessReceipt(svc *receipt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Reprocess(c.Request.Context(), c.Param("id"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get receipt
// @Tags         Receipt
// @Produce      json
// @Param        id path string true "Receipt ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/receipts/{id} [get]
func ApiGetReceipt(svc *receipt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rec))
	}
}

// @Summary      Delete receipt
// @Description  Soft-deletes a receipt and releases any subscription payment link.
// @Tags         Receipt
// @Produce      json
// @Param        id path string true "Receipt ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/receipts/{id} [delete]
func ApiDeleteReceipt(svc *receipt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "deleted"}))
	}
}

// @Summary      Scan receipts
// @Description  Filtered listing used by admin/browse pages.
// @Tags         Receipt
// @Accept       json
// @Produce      json
// @Param        request body receipt.ScanReceiptsRequest true "Scan request"
// @Success      200  {object}  handlers.RespScanReceipts
// @Router       /api/v1/receipts/scan [post]
func ApiScanReceipts(svc *receipt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req receipt.ScanReceiptsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanReceipts(c.Request.Context(), &req)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterReceiptRoutes(r gin.IRouter, svc *receipt.Service) {
	r.POST("/receipts", ApiCreateReceipt(svc))
	r.POST("/receipts/scan", ApiScanReceipts(svc))
	r.GET("/receipts/:id", ApiGetReceipt(svc))
	r.DELETE("/receipts/:id", ApiDeleteReceipt(svc))
	r.POST("/receipts/:id/process", ApiProcessReceipt(svc))
	r.POST("/receipts/:id/reprocess", ApiReprocessReceipt(svc))
}
