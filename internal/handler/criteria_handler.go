package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scoresheet-api/internal/models"
	"github.com/noah-isme/scoresheet-api/internal/service"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
	"github.com/noah-isme/scoresheet-api/pkg/response"
)

// CriteriaHandler wires HTTP endpoints to the grading criteria service.
type CriteriaHandler struct {
	service *service.CriteriaService
}

// NewCriteriaHandler creates a new handler.
func NewCriteriaHandler(svc *service.CriteriaService) *CriteriaHandler {
	return &CriteriaHandler{service: svc}
}

// List godoc
// @Summary List grading criteria
// @Description List a subject's grading scale in resolution order
// @Tags Grading Criteria
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/criteria [get]
func (h *CriteriaHandler) List(c *gin.Context) {
	criteria, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, criteria, nil)
}

// Create godoc
// @Summary Add grading criterion
// @Description Add a criterion; every group of the subject recomputes afterwards
// @Tags Grading Criteria
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body models.CreateCriterionRequest true "Criterion payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{id}/criteria [post]
func (h *CriteriaHandler) Create(c *gin.Context) {
	var req models.CreateCriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid criterion payload"))
		return
	}

	criterion, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, criterion)
}

// Update godoc
// @Summary Update grading criterion
// @Description Patch a criterion; every group of the subject recomputes afterwards
// @Tags Grading Criteria
// @Accept json
// @Produce json
// @Param id path string true "Criterion ID"
// @Param payload body models.UpdateCriterionRequest true "Criterion payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /criteria/{id} [put]
func (h *CriteriaHandler) Update(c *gin.Context) {
	var req models.UpdateCriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid criterion payload"))
		return
	}

	criterion, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, criterion, nil)
}

// Delete godoc
// @Summary Delete grading criterion
// @Description Remove a criterion; every group of the subject recomputes afterwards
// @Tags Grading Criteria
// @Produce json
// @Param id path string true "Criterion ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /criteria/{id} [delete]
func (h *CriteriaHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
