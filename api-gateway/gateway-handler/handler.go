package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type GatewayHandler interface {
	Setup(engine *gin.Engine, apiGroup *gin.RouterGroup)
}

// StatusForReason maps the deny and failure reasons of the backend
// services to HTTP status codes, so handlers never have to re-derive
// the cause of a denial.
func StatusForReason(reason string) int {
	switch reason {
	case "item_not_found", "link_not_found", "not_found":
		return http.StatusNotFound
	case "link_inactive":
		return http.StatusGone
	case "password_required", "password_incorrect":
		return http.StatusUnauthorized
	case "insufficient_permission", "forbidden":
		return http.StatusForbidden
	case "conflict":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
