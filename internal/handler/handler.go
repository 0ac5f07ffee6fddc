package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vrindashine1/erp-po-inventory/internal/apperror"
	"github.com/vrindashine1/erp-po-inventory/pkg/response"
)

// respondError maps a service error onto the HTTP status dictated by its
// classification and writes the standard error envelope.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	c.JSON(status, response.Error(status, err.Error()))
}
