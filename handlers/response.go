package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data"`
}

var errorStatus = []struct {
	kind   error
	status int
	code   string
}{
	{utils.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{utils.ErrForbidden, http.StatusForbidden, "forbidden"},
	{utils.ErrNotFound, http.StatusNotFound, "not_found"},
	{utils.ErrValidation, http.StatusBadRequest, "validation_error"},
	{utils.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{utils.ErrInsufficientStock, http.StatusUnprocessableEntity, "insufficient_stock"},
	{utils.ErrConflict, http.StatusConflict, "conflict"},
}

// StatusFor maps an error kind to its HTTP status and code. Unknown errors are internal.
func StatusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// respondError writes the envelope for err. Internal failures are attached to the context
// for the error logger and never shown to the caller.
func respondError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	body := Response{Success: false, Message: err.Error(), Code: code}

	var shortage *utils.InsufficientStockError
	if errors.As(err, &shortage) {
		body.Data = shortage.Shortages
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		body.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	respondError(c, utils.Validation("%s", message))
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
