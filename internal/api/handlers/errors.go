// Package handlers implements the HTTP handlers for the certM3 API. Input
// is validated at the boundary into explicit request structs; service
// errors are mapped to wire status codes in exactly one place.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SamCN2/certm3/internal/errs"
)

// httpStatus maps an error kind to its wire-level status code.
func httpStatus(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindInvalidState, errs.KindInvalidInput:
		return http.StatusBadRequest
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a classified error. Internal errors are reported
// without their underlying detail.
func writeError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := httpStatus(kind)

	message := err.Error()
	if kind == errs.KindInternal {
		message = "internal error"
	}

	c.JSON(status, gin.H{
		"error": message,
		"kind":  kind.String(),
	})
}
