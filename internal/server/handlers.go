package server

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/go-chi/chi/v5"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"go.uber.org/zap"
	"net/http"
	"net/url"
)

// CreateSession is an HTTP handler to call the api.PaymentsV1's CreateSession method.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.payments.CreateSession(r.Context(), req)
	s.respond(w, res, err)
}

// CreateChargeSession is an HTTP handler to call the api.PaymentsV1's CreateChargeSession method.
func (s *Server) CreateChargeSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateChargeSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.payments.CreateChargeSession(r.Context(), req)
	s.respond(w, res, err)
}

// CreateSubscriptionSession is an HTTP handler to call the api.PaymentsV1's CreateSubscriptionSession method.
func (s *Server) CreateSubscriptionSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSubscriptionSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.payments.CreateSubscriptionSession(r.Context(), req)
	s.respond(w, res, err)
}

// UpdateTaxRates is an HTTP handler to call the api.PaymentsV1's UpdateTaxRates method.
// The customer handle is taken from the URL.
func (s *Server) UpdateTaxRates(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateTaxRatesRequest
	if !s.decode(w, r, &req) {
		return
	}
	handle, err := urlParam(r, "handle")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: api.CodeInvalidRequest, Message: err.Error()})
		return
	}
	req.Handle = handle

	res, err := s.payments.UpdateTaxRates(r.Context(), req)
	s.respond(w, res, err)
}

// urlParam returns the unescaped value of a route parameter. The router matches on the escaped path when the
// request contains encoded separators, so parameters are unescaped in that case.
func urlParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if len(r.URL.RawPath) == 0 {
		return v, nil
	}
	return url.PathUnescape(v)
}

// decode reads the JSON body of r into v. It writes a bad request response and returns false if it fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Info("Failed to decode request body", zap.String("path", r.URL.Path), zap.Error(err))
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
			Error:   api.CodeInvalidRequest,
			Message: "Failed to decode body: " + err.Error(),
		})
		return false
	}
	return true
}

// respond writes res as JSON, or the error response matching err.
func (s *Server) respond(w http.ResponseWriter, res interface{}, err error) {
	if err != nil {
		status, code := errorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Request failed", zap.String("code", code), zap.Error(err))
		}
		s.writeJSON(w, status, api.ErrorResponse{Error: code, Message: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

// errorStatus maps an error returned by the cashier service into an HTTP status and an error code.
func errorStatus(err error) (int, string) {
	var perr *api.ProviderError
	switch {
	case errors.Is(err, api.ErrMissingRequiredOption):
		return http.StatusBadRequest, api.CodeMissingRequiredOption
	case errors.Is(err, api.ErrInvalidRequest),
		errors.Is(err, api.ErrInvalidURL),
		errors.Is(err, api.ErrEmptyHandle):
		return http.StatusBadRequest, api.CodeInvalidRequest
	case errors.Is(err, api.ErrIllegalState):
		return http.StatusConflict, api.CodeIllegalState
	case errors.As(err, &perr):
		return http.StatusBadGateway, api.CodeProviderError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, api.CodeTimeout
	default:
		return http.StatusInternalServerError, api.CodeInternal
	}
}
