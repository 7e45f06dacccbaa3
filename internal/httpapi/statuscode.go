// Package httpapi wires the three protocol frontends (sqsjson, snsxml,
// s3rest) onto one echo.Echo instance (spec.md §6, "HTTP surface"). The
// frontends are shells: they decode wire requests, call into the core
// (registries, queue, publisher, objectstore), and re-encode the core's
// plain Go results. No domain logic lives here.
package httpapi

import (
	"net/http"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
)

// StatusFor maps an AppError's code/kind to the HTTP status the wire
// protocol expects (spec.md §7, "status hint"). A handful of codes carry
// a status distinct from their kind's default.
func StatusFor(err error) int {
	ae, ok := apperrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case apperrors.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case apperrors.CodeInvalidRange:
		return http.StatusRequestedRangeNotSatisfiable
	}
	switch ae.Kind {
	case apperrors.KindClientInput:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindState:
		return http.StatusConflict
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
