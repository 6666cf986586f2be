package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pantrychef/internal/cooking"
	"pantrychef/internal/recipe"
)

type openSessionRequest struct {
	Recipe        *recipe.Recipe `json:"recipe"`
	SavedRecipeID string         `json:"savedRecipeId"`
}

// OpenCooking starts cooking mode. The recipe comes from the body, a saved
// recipe id, or the recipe currently on display, in that order.
func (h *Handler) OpenCooking(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var r recipe.Recipe
	switch {
	case req.Recipe != nil:
		r = *req.Recipe
	case req.SavedRecipeID != "":
		ctx, cancel := storeContext(c)
		saved, ok := h.Saved.Get(ctx, req.SavedRecipeID)
		cancel()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "saved recipe not found"})
			return
		}
		r = saved.Recipe
	default:
		cur := h.Suggester.Current().Recipe
		if cur == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no recipe to cook"})
			return
		}
		r = *cur
	}

	s, err := h.Cooking.Open(r)
	if err != nil {
		if errors.Is(err, cooking.ErrNoSteps) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s.Snapshot())
}

// GetCooking returns a session's state. The UI polls it to render the timer.
func (h *Handler) GetCooking(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// NextStep moves a session forward.
func (h *Handler) NextStep(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := s.Next()
	writeSnapshot(c, snap, err)
}

// PreviousStep moves a session back.
func (h *Handler) PreviousStep(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := s.Previous()
	writeSnapshot(c, snap, err)
}

type startTimerRequest struct {
	Minutes int `json:"minutes"`
}

// StartTimer starts the step timer.
func (h *Handler) StartTimer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req startTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minutes must be a whole number", "field": "minutes"})
		return
	}
	snap, err := s.StartTimer(c.Request.Context(), req.Minutes)
	writeSnapshot(c, snap, err)
}

// PauseTimer pauses the step timer.
func (h *Handler) PauseTimer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := s.PauseTimer()
	writeSnapshot(c, snap, err)
}

// ResumeTimer resumes the step timer.
func (h *Handler) ResumeTimer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := s.ResumeTimer()
	writeSnapshot(c, snap, err)
}

// ResetTimer clears the step timer.
func (h *Handler) ResetTimer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.ResetTimer())
}

// CloseCooking ends a session.
func (h *Handler) CloseCooking(c *gin.Context) {
	if err := h.Cooking.Close(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) session(c *gin.Context) (*cooking.Session, bool) {
	s, err := h.Cooking.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return s, true
}

func writeSnapshot(c *gin.Context, snap cooking.Snapshot, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, snap)
	case errors.Is(err, cooking.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "minutes", "session": snap})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": snap})
	}
}
