package http

import (
	"errors"
	"net/http"
	"strings"

	delegationDomain "approvalflow/internal/domain/delegation"
	workflowDomain "approvalflow/internal/domain/workflow"

	"github.com/labstack/echo/v4"
)

// actor is the caller identity, taken from trusted headers set by the
// upstream gateway. Authn and permission checks happen there, not here.
type actor struct {
	TenantID string
	UserID   string
	Role     string
}

func actorFrom(c echo.Context) (actor, error) {
	a := actor{
		TenantID: strings.TrimSpace(c.Request().Header.Get("Ax-Tenant-Id")),
		UserID:   strings.TrimSpace(c.Request().Header.Get("Ax-User-Id")),
		Role:     strings.TrimSpace(c.Request().Header.Get("Ax-User-Role")),
	}
	if a.TenantID == "" {
		return a, errors.New("missing Ax-Tenant-Id")
	}
	if a.UserID == "" {
		return a, errors.New("missing Ax-User-Id")
	}
	return a, nil
}

// domainError maps engine errors onto HTTP statuses. Anything unmapped is a
// 500.
func domainError(c echo.Context, err error) error {
	var code int
	switch {
	case errors.Is(err, workflowDomain.ErrTemplateNotFound),
		errors.Is(err, workflowDomain.ErrInstanceNotFound),
		errors.Is(err, workflowDomain.ErrStepNotFound),
		errors.Is(err, delegationDomain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, workflowDomain.ErrDuplicateActiveWorkflow),
		errors.Is(err, workflowDomain.ErrStepAlreadyResolved),
		errors.Is(err, workflowDomain.ErrInstanceNotActive),
		errors.Is(err, workflowDomain.ErrNotCurrentStep),
		errors.Is(err, workflowDomain.ErrInvalidCancelState):
		code = http.StatusConflict
	case errors.Is(err, workflowDomain.ErrInvalidStepConfig),
		errors.Is(err, workflowDomain.ErrEmptyTemplate),
		errors.Is(err, delegationDomain.ErrSelfDelegation),
		errors.Is(err, delegationDomain.ErrInvalidWindow):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, workflowDomain.ErrNotAuthorized):
		code = http.StatusForbidden
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}
