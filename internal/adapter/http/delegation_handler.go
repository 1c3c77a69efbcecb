package http

import (
	"net/http"
	"time"

	"approvalflow/internal/usecase/delegation"

	"github.com/labstack/echo/v4"
)

type DelegationHandler struct{ uc *delegation.Usecase }

func NewDelegationHandler(uc *delegation.Usecase) *DelegationHandler {
	return &DelegationHandler{uc: uc}
}

type createDelegationReq struct {
	DelegateID string `json:"delegate_id" validate:"required,hex32"`
	// Canonical dates `YYYY-MM-DD`; the window is inclusive on both ends.
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date"   validate:"required,datetime=2006-01-02"`
	Reason    string   `json:"reason"`
	Scope     []string `json:"scope"`
}

// Create registers a delegation. The delegator is always the acting user;
// nobody files delegations on someone else's behalf.
func (h *DelegationHandler) Create(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	var req createDelegationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	// end of day so a single-day delegation covers the whole day
	end = end.Add(24*time.Hour - time.Second)

	dto, err := h.uc.Create(c.Request().Context(), delegation.CreateInput{
		TenantID:    a.TenantID,
		DelegatorID: a.UserID,
		DelegateID:  req.DelegateID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
		Scope:       req.Scope,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

// List returns the acting user's own delegations; ?active=true narrows to the
// ones currently in window.
func (h *DelegationHandler) List(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	ctx := c.Request().Context()
	if c.QueryParam("active") == "true" {
		dtos, err := h.uc.FindActiveFor(ctx, a.TenantID, a.UserID, time.Now().UTC())
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(http.StatusOK, dtos)
	}
	dtos, err := h.uc.List(ctx, a.TenantID, a.UserID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

func (h *DelegationHandler) Revoke(c echo.Context) error {
	a, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err := h.uc.Revoke(c.Request().Context(), a.TenantID, c.Param("delegation_id")); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
