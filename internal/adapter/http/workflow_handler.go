package http

import (
	"net/http"
	"strconv"

	"approvalflow/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
)

type WorkflowHandler struct {
	orc   *workflow.Orchestrator
	query *workflow.Query
}

func NewWorkflowHandler(orc *workflow.Orchestrator, query *workflow.Query) *WorkflowHandler {
	return &WorkflowHandler{orc: orc, query: query}
}

type startWorkflowReq struct {
	EntityType string `json:"entity_type" validate:"required,max=64"`
	EntityID   string `json:"entity_id"   validate:"required,max=64"`
}

type resolveStepReq struct {
	Comments *string `json:"comments"`
}

// Start kicks off a workflow for an entity. 204 means "no template
// configured, no workflow required" — deliberately not an error.
func (h *WorkflowHandler) Start(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	var req startWorkflowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.orc.Start(c.Request().Context(), workflow.StartInput{
		TenantID:    a.TenantID,
		InitiatorID: a.UserID,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
	})
	if err != nil {
		return domainError(c, err)
	}
	if dto == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *WorkflowHandler) Approve(c echo.Context) error { return h.resolve(c, true) }
func (h *WorkflowHandler) Reject(c echo.Context) error  { return h.resolve(c, false) }

func (h *WorkflowHandler) resolve(c echo.Context, approve bool) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	var req resolveStepReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in := workflow.ResolveInput{
		TenantID:     a.TenantID,
		StepID:       c.Param("step_id"),
		ActingUserID: a.UserID,
		ActingRole:   a.Role,
		Comments:     req.Comments,
	}
	var dto *workflow.StepDTO
	if approve {
		dto, err = h.orc.ApproveStep(c.Request().Context(), in)
	} else {
		dto, err = h.orc.RejectStep(c.Request().Context(), in)
	}
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *WorkflowHandler) Cancel(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err := h.orc.Cancel(c.Request().Context(), a.TenantID, c.Param("instance_id"), a.UserID); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *WorkflowHandler) List(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	dto, err := h.query.ListInstances(c.Request().Context(), a.TenantID, workflow.ListFilter{
		EntityType:  c.QueryParam("entity_type"),
		EntityID:    c.QueryParam("entity_id"),
		Status:      c.QueryParam("status"),
		InitiatedBy: c.QueryParam("initiated_by"),
	}, page, perPage)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *WorkflowHandler) Get(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	dto, err := h.query.GetInstance(c.Request().Context(), a.TenantID, c.Param("instance_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Pending returns the acting user's approval work queue.
func (h *WorkflowHandler) Pending(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	dtos, err := h.query.PendingApprovalsFor(c.Request().Context(), a.TenantID, a.UserID, a.Role)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}
