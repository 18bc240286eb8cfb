// Package handler holds the gin handlers of the /api/v1 routes. Handlers
// bind and validate input, call one application service and write the
// response envelope.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/infrastructure/logger"
	"github.com/dealerops/backend/internal/interfaces/http/dto"
	"github.com/dealerops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateLayout            = "2006-01-02"
	internalErrorMessage  = "An unexpected error occurred"
	validationFailMessage = "Request validation failed"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindError answers a failed ShouldBind call. Validator failures carry
// per-field details; anything else is a malformed request.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(validationFailMessage, middleware.GetRequestID(c), details))
		return
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error())
}

// HandleError converts an error returned by a service into a response.
// Domain errors keep their message unless they map to a 5xx; anything else
// is logged and answered with a generic 500 so store messages never leak.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status < http.StatusInternalServerError {
			h.Error(c, status, code, domainErr.Message)
			return
		}
	}

	logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, internalErrorMessage)
}

// pathUUID parses a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter
func (h *BaseHandler) queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+": must be a UUID")
		return nil, false
	}
	return &id, true
}

// queryDate parses an optional YYYY-MM-DD query parameter, falling back to def
func (h *BaseHandler) queryDate(c *gin.Context, name string, def time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+": expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

// queryInt parses an optional integer query parameter, falling back to def
func (h *BaseHandler) queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+": must be an integer")
		return 0, false
	}
	return n, true
}

// parseDate parses an optional YYYY-MM-DD body field
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid date "+strconv.Quote(raw)+": expected YYYY-MM-DD")
	}
	return &d, nil
}

// orZero unwraps an optional date; services read the zero time as "now"
func orZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// actingSalesPerson prefers an explicit body value over the request header
func actingSalesPerson(c *gin.Context, explicit *uuid.UUID) *uuid.UUID {
	if explicit != nil {
		return explicit
	}
	return middleware.GetSalesPersonID(c)
}
