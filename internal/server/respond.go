package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var up *models.UpstreamError
	switch {
	case errors.As(err, &up):
		if up.StatusCode >= 400 && up.StatusCode <= 599 {
			return up.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInput), errors.Is(err, models.ErrPrecondition), errors.Is(err, models.ErrData):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v. An empty body is accepted when allowEmpty.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return nil
	}
	return models.InputError("invalid request body")
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.failWithStatus(w, op, statusFor(err), err)
}

func (s *Server) failWithStatus(w http.ResponseWriter, op string, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
