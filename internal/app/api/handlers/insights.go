package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapspend/backend/internal/app/service/insights"
	"github.com/snapspend/backend/pkg/response"
)

// @Summary      Spending summary
// @Description  Per-category spend over a period, served from the TTL cache when fresh.
// @Tags         Insights
// @Produce      json
// @Param        from query string true "Period start (YYYY-MM-DD)"
// @Param        to query string true "Period end, exclusive (YYYY-MM-DD)"
// @Success      200  {object}  handlers.RespSpendingSummary
// @Router       /api/v1/insights/spending [get]
func ApiSpendingSummary(svc *insights.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, err := time.Parse("2006-01-02", c.Query("from"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid from date"))
			return
		}
		to, err := time.Parse("2006-01-02", c.Query("to"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid to date"))
			return
		}
		if !to.After(from) {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "to must be after from"))
			return
		}

		summary, err := svc.GetSpendingSummary(c.Request.Context(), c.GetString("user_id"), from, to)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(summary))
	}
}

func RegisterInsightsRoutes(r gin.IRouter, svc *insights.Service) {
	r.GET("/insights/spending", ApiSpendingSummary(svc))
}
