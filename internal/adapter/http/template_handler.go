package http

import (
	"net/http"

	"approvalflow/internal/usecase/template"

	"github.com/labstack/echo/v4"
)

type TemplateHandler struct{ uc *template.Usecase }

func NewTemplateHandler(uc *template.Usecase) *TemplateHandler { return &TemplateHandler{uc: uc} }

type templateStepReq struct {
	Order         int    `json:"order"          validate:"gte=1"`
	ApproverType  string `json:"approver_type"  validate:"required,oneof=USER ROLE MANAGER"`
	ApproverValue string `json:"approver_value"`
}

type createTemplateReq struct {
	Name        string            `json:"name"        validate:"required,max=255"`
	Description string            `json:"description"`
	EntityType  string            `json:"entity_type" validate:"required,max=64"`
	Steps       []templateStepReq `json:"steps"       validate:"dive"`
}

type updateTemplateReq struct {
	Name        *string           `json:"name"        validate:"omitempty,max=255"`
	Description *string           `json:"description"`
	Active      *bool             `json:"active"`
	Steps       []templateStepReq `json:"steps"       validate:"omitempty,dive"`
}

func toStepInputs(in []templateStepReq) []template.StepInput {
	if in == nil {
		return nil
	}
	out := make([]template.StepInput, 0, len(in))
	for _, s := range in {
		out = append(out, template.StepInput{Order: s.Order, ApproverType: s.ApproverType, ApproverValue: s.ApproverValue})
	}
	return out
}

func (h *TemplateHandler) Create(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	var req createTemplateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.Create(c.Request().Context(), template.CreateInput{
		TenantID:    a.TenantID,
		Name:        req.Name,
		Description: req.Description,
		EntityType:  req.EntityType,
		Steps:       toStepInputs(req.Steps),
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *TemplateHandler) List(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	dtos, err := h.uc.List(c.Request().Context(), a.TenantID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

func (h *TemplateHandler) Get(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	dto, err := h.uc.Get(c.Request().Context(), a.TenantID, c.Param("template_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *TemplateHandler) Update(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	var req updateTemplateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.Update(c.Request().Context(), a.TenantID, c.Param("template_id"), template.UpdatePatch{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
		Steps:       toStepInputs(req.Steps),
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *TemplateHandler) Deactivate(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err := h.uc.Deactivate(c.Request().Context(), a.TenantID, c.Param("template_id")); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
