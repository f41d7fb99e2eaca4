package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapspend/backend/internal/app/service/payment"
	subsvc "github.com/snapspend/backend/internal/app/service/subscription"
	"github.com/snapspend/backend/pkg/response"
)

func replySubscriptionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subsvc.ErrSubscriptionNotFound),
		errors.Is(err, payment.ErrPaymentNotFound),
		errors.Is(err, payment.ErrPaymentAlreadyLinked),
		errors.Is(err, payment.ErrReceiptAlreadyLinked),
		errors.Is(err, payment.ErrReceiptNotLinkable):
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
	default:
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
	}
}

// @Summary      Create subscription
// @Description  Declares a recurring expense and seeds its next billing date.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body subscription.CreateSubscriptionRequest true "Subscription"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions [post]
func ApiCreateSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.CreateSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.UserID == "" {
			req.UserID = c.GetString("user_id")
		}
		sub, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      List subscriptions
// @Tags         Subscription
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions [get]
func ApiListSubscriptions(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			userID = c.GetString("user_id")
		}
		subs, err := svc.ListByUser(c.Request.Context(), userID)
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

// @Summary      Get subscription
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id} [get]
func ApiGetSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Update subscription schedule
// @Description  Changes schedule parameters. Future unpaid payments are rebuilt; paid history is preserved.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body subscription.UpdateScheduleRequest true "Schedule changes"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id} [patch]
func ApiUpdateSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.UpdateScheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := svc.UpdateSchedule(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Delete subscription
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id} [delete]
func ApiDeleteSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "deleted"}))
	}
}

type generatePaymentsRequest struct {
	Through time.Time `json:"through" binding:"required"`
}

// @Summary      Generate expected payments
// @Description  Materializes the schedule through the given date. Existing rows for a date are never duplicated.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body generatePaymentsRequest true "Horizon"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/payments/generate [post]
func ApiGeneratePayments(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generatePaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		created, err := svc.GeneratePayments(c.Request.Context(), c.Param("id"), req.Through)
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(created))
	}
}

// @Summary      List expected payments
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/payments [get]
func ApiListPayments(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payments, err := svc.ListPayments(c.Request.Context(), c.Param("id"))
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(payments))
	}
}

// @Summary      Missing payment count
// @Description  Counts expected payments whose date passed without linked receipt evidence.
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/payments/missing [get]
func ApiMissingPayments(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := svc.MissingPayments(c.Request.Context(), c.Param("id"))
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]int64{"missing_count": count}))
	}
}

type linkPaymentRequest struct {
	ReceiptID string `json:"receipt_id" binding:"required"`
}

// @Summary      Link receipt to payment
// @Description  Attaches a completed receipt as evidence for an expected payment and marks it paid.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID"
// @Param        request body linkPaymentRequest true "Receipt link"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payments/{id}/link [post]
func ApiLinkPayment(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req linkPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		p, err := svc.Link(c.Request.Context(), c.Param("id"), req.ReceiptID)
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      Unlink receipt from payment
// @Description  Clears the receipt link and reverts the payment to pending or missed.
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payments/{id}/unlink [post]
func ApiUnlinkPayment(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Unlink(c.Request.Context(), c.Param("id"))
		if err != nil {
			replySubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, subs *subsvc.Service, payments *payment.Service) {
	r.POST("/subscriptions", ApiCreateSubscription(subs))
	r.GET("/subscriptions", ApiListSubscriptions(subs))
	r.GET("/subscriptions/:id", ApiGetSubscription(subs))
	r.PATCH("/subscriptions/:id", ApiUpdateSubscription(subs))
	r.DELETE("/subscriptions/:id", ApiDeleteSubscription(subs))
	r.GET("/subscriptions/:id/payments", ApiListPayments(subs))
	r.POST("/subscriptions/:id/payments/generate", ApiGeneratePayments(subs))
	r.GET("/subscriptions/:id/payments/missing", ApiMissingPayments(payments))
	r.POST("/payments/:id/link", ApiLinkPayment(payments))
	r.POST("/payments/:id/unlink", ApiUnlinkPayment(payments))
}
