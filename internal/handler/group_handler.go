package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scoresheet-api/internal/models"
	"github.com/noah-isme/scoresheet-api/internal/service"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
	"github.com/noah-isme/scoresheet-api/pkg/response"
)

// GroupHandler wires HTTP endpoints to the group service: groups, learners,
// columns and score entry.
type GroupHandler struct {
	service *service.GroupService
}

// NewGroupHandler creates a new handler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// ListBySubject godoc
// @Summary List groups
// @Description List a subject's groups
// @Tags Groups
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/groups [get]
func (h *GroupHandler) ListBySubject(c *gin.Context) {
	groups, err := h.service.ListBySubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get group
// @Description Fetch a group scoresheet with learners and columns
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Create godoc
// @Summary Create group
// @Description Add a group to a subject
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body models.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{id}/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	group, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Update godoc
// @Summary Rename group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.UpdateGroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	var req models.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	group, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Delete group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddLearner godoc
// @Summary Enroll learner
// @Description Add a learner to the group; the external learner id must be unique within it
// @Tags Learners
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.CreateLearnerRequest true "Learner payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /groups/{id}/learners [post]
func (h *GroupHandler) AddLearner(c *gin.Context) {
	var req models.CreateLearnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid learner payload"))
		return
	}

	learner, err := h.service.AddLearner(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, learner)
}

// UpdateLearner godoc
// @Summary Update learner
// @Tags Learners
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param learnerId path string true "Learner row ID"
// @Param payload body models.UpdateLearnerRequest true "Learner payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/learners/{learnerId} [put]
func (h *GroupHandler) UpdateLearner(c *gin.Context) {
	var req models.UpdateLearnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid learner payload"))
		return
	}

	learner, err := h.service.UpdateLearner(c.Request.Context(), c.Param("id"), c.Param("learnerId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, learner, nil)
}

// DeleteLearner godoc
// @Summary Remove learner
// @Tags Learners
// @Produce json
// @Param id path string true "Group ID"
// @Param learnerId path string true "Learner row ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/learners/{learnerId} [delete]
func (h *GroupHandler) DeleteLearner(c *gin.Context) {
	if err := h.service.DeleteLearner(c.Request.Context(), c.Param("id"), c.Param("learnerId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddColumn godoc
// @Summary Add column
// @Description Add a score, sum or grade column; derived columns materialize immediately
// @Tags Columns
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.CreateColumnRequest true "Column payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /groups/{id}/columns [post]
func (h *GroupHandler) AddColumn(c *gin.Context) {
	var req models.CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid column payload"))
		return
	}

	column, err := h.service.AddColumn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, column)
}

// UpdateColumn godoc
// @Summary Update column
// @Description Patch a column's name, sources and position; the type is immutable
// @Tags Columns
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param columnId path string true "Column ID"
// @Param payload body models.UpdateColumnRequest true "Column payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/columns/{columnId} [put]
func (h *GroupHandler) UpdateColumn(c *gin.Context) {
	var req models.UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid column payload"))
		return
	}

	column, err := h.service.UpdateColumn(c.Request.Context(), c.Param("id"), c.Param("columnId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, column, nil)
}

// DeleteColumn godoc
// @Summary Delete column
// @Description Remove a column; score entries and source references to it are scrubbed
// @Tags Columns
// @Produce json
// @Param id path string true "Group ID"
// @Param columnId path string true "Column ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/columns/{columnId} [delete]
func (h *GroupHandler) DeleteColumn(c *gin.Context) {
	if err := h.service.DeleteColumn(c.Request.Context(), c.Param("id"), c.Param("columnId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EnterScore godoc
// @Summary Enter score
// @Description Write one score cell and return the learner's recomputed row
// @Tags Scores
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.ScoreEntryRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /groups/{id}/scores [put]
func (h *GroupHandler) EnterScore(c *gin.Context) {
	var req models.ScoreEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	learner, err := h.service.EnterScore(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, learner, nil)
}

// Recompute godoc
// @Summary Recompute group
// @Description Rebuild every derived column for the group and persist the result
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/recompute [post]
func (h *GroupHandler) Recompute(c *gin.Context) {
	if err := h.service.Recompute(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	group, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}
