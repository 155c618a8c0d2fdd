package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type createHabitRequest struct {
	Name  string `json:"nome" binding:"required"`
	Color string `json:"cor"`
	Icon  string `json:"icone"`
}

type updateHabitRequest struct {
	Name  *string `json:"nome"`
	Color *string `json:"cor"`
	Icon  *string `json:"icone"`
}

type reorderRequest struct {
	Order []string `json:"ordemHabitos" binding:"required"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habitos")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.PATCH("/reordenar", h.Reorder)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
		habits.POST("/:id/complete", h.Complete)
	}
}

func abortWithHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "habit not found"})
	case errors.Is(err, domain.ErrAlreadyCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"message": "already completed today"})
	case errors.Is(err, domain.ErrHabitNameEmpty),
		errors.Is(err, domain.ErrHabitNameTooLong),
		errors.Is(err, domain.ErrInvalidColor),
		errors.Is(err, domain.ErrInvalidIcon),
		errors.Is(err, domain.ErrEmptyUpdate),
		errors.Is(err, domain.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user context missing"})
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	habit, err := h.svc.Create(c.Request.Context(), userID, domain.CreateHabitInput{
		Name:  req.Name,
		Color: req.Color,
		Icon:  req.Icon,
	})
	if err != nil {
		abortWithHabitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit.Habit)
}

func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user context missing"})
		return
	}

	records, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		abortWithHabitError(c, err)
		return
	}

	habits := make([]domain.Habit, 0, len(records))
	for _, r := range records {
		habits = append(habits, r.Habit)
	}

	c.JSON(http.StatusOK, gin.H{"habitos": habits})
}

func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user context missing"})
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), domain.UpdateHabitInput{
		Name:  req.Name,
		Color: req.Color,
		Icon:  req.Icon,
	})
	if err != nil {
		abortWithHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habito": habit.Habit})
}

func (h *HabitHandler) Complete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user context missing"})
		return
	}

	habit, err := h.svc.Complete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		abortWithHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habito": habit.Habit})
}

func (h *HabitHandler) Reorder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user context missing"})
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := h.svc.Reorder(c.Request.Context(), userID, req.Order); err != nil {
		abortWithHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order updated"})
}

func (h *HabitHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user context missing"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		abortWithHabitError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
