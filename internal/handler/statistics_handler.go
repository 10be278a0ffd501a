package handler

import (
	"net/http"
	"time"

	"weddingplanner/internal/middleware"
	"weddingplanner/internal/model"
	"weddingplanner/internal/service"
	"weddingplanner/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/statistics", middleware.RequireRole(model.RolePlanner, model.RoleAdmin))
	{
		stats.GET("", h.GetDashboard)
	}
}

// GetDashboard handles GET /statistics
// @Summary      Planner dashboard
// @Description  Quote funnel, billing totals and top clients bounded by time
// @Tags         statistics
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query     string  false  "Start date (RFC3339, defaults to first of current month)"
// @Param        end_date    query     string  false  "End date (RFC3339, defaults to now)"
// @Success      200  {object}  response.Response{data=model.DashboardResponse}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /statistics [get]
func (h *StatisticsHandler) GetDashboard(c *gin.Context) {
	plannerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	var startDate, endDate time.Time
	var err error

	now := time.Now()
	if raw := c.Query("start_date"); raw == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else if startDate, err = time.Parse(time.RFC3339, raw); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
		return
	}
	if raw := c.Query("end_date"); raw == "" {
		endDate = now
	} else if endDate, err = time.Parse(time.RFC3339, raw); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
		return
	}

	dashboard, err := h.statisticsService.GetDashboard(c.Request.Context(), plannerID, startDate, endDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}
