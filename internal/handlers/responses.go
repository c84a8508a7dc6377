package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Meta    interface{}       `json:"meta,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

func validationResponse(err error) APIResponse {
	resp := APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  map[string]string{},
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Errors[fe.Field()] = fe.Tag()
		}
		return resp
	}

	resp.Errors["body"] = err.Error()
	return resp
}

func fieldError(field, reason string) APIResponse {
	return APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  map[string]string{field: reason},
	}
}

// writeDBError maps storage failures onto the error taxonomy: missing rows
// become 404, unique-index collisions become 409, everything else is a
// logged 500 with a generic body.
func writeDBError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, errorResponse(notFoundMsg))
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, errorResponse("Resource already exists"))
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("database error")
		c.JSON(http.StatusInternalServerError, errorResponse("Internal server error"))
	}
}
