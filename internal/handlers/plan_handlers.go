package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"lipaplan_app_echo/internal/models"
	"lipaplan_app_echo/internal/services"
)

type PlanHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewPlanHandler(db *gorm.DB, cache *services.RedisCache) *PlanHandler {
	return &PlanHandler{db: db, cache: cache}
}

// ListPlans returns the active tiers, cheapest first
func (h *PlanHandler) ListPlans(c echo.Context) error {
	plans, err := services.GetOrSet(h.cache, c.Request().Context(), "plans:active", 5*time.Minute, func() ([]models.Plan, error) {
		var plans []models.Plan
		err := h.db.Where("is_active = ?", true).Order("price_minor asc").Find(&plans).Error
		return plans, err
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch plans")
	}
	return c.JSON(http.StatusOK, plans)
}

// GetPlan returns a single plan by ID
func (h *PlanHandler) GetPlan(c echo.Context) error {
	planID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan ID")
	}

	var plan models.Plan
	if err := h.db.First(&plan, uint(planID)).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Plan not found")
	}
	return c.JSON(http.StatusOK, plan)
}
