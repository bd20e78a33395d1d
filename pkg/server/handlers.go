package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mercator-hq/mailguard/pkg/history"
	"mercator-hq/mailguard/pkg/orchestrator"
	"mercator-hq/mailguard/pkg/sanitize"
	"mercator-hq/mailguard/pkg/scan"
	"mercator-hq/mailguard/pkg/security/auth"
	"mercator-hq/mailguard/pkg/telemetry/logging"
)

// UserIDHeader names the caller when authentication is disabled.
const UserIDHeader = "X-User-ID"

// AnonymousUser owns history written without a user ID.
const AnonymousUser = "anonymous"

// maxUserIDLength bounds header-supplied user IDs.
const maxUserIDLength = 128

// Scanner is the scan service surface the API needs.
type Scanner interface {
	Scan(ctx context.Context, userID, raw string) (*scan.Report, error)
	History(ctx context.Context, userID string, limit int) ([]*history.Entry, error)
}

// ModelLister reports the registered analyzers.
type ModelLister interface {
	Summary() orchestrator.Summary
}

// ScanRequest is the body of POST /v1/scan.
type ScanRequest struct {
	EmailText *string `json:"email_text"`
}

// HistoryResponse is the body of GET /v1/history.
type HistoryResponse struct {
	History []*history.Entry `json:"history"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorTypeInvalidRequest, CodeBodyTooLarge,
				"request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeInvalidJSON,
			"request body must be a JSON object")
		return
	}
	if req.EmailText == nil {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeMissingField,
			"email_text is required")
		return
	}

	report, err := s.scanner.Scan(r.Context(), callerID(r), *req.EmailText)
	if err != nil {
		s.writeScanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeScanError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *sanitize.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeInvalidEmailText, verr.Reason)
	case errors.Is(err, scan.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, ErrorTypeServiceUnavailable, CodeNoAnalyzers,
			"no analyzers are registered")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrorTypeGatewayTimeout, CodeTimeout,
			"scan did not complete in time")
	case errors.Is(err, context.Canceled):
		s.logger.DebugContext(r.Context(), "client went away during scan")
	default:
		s.logger.ErrorContext(r.Context(), "scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorTypeServerError, CodeInternal, "scan failed")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeInvalidValue,
				"limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.scanner.History(r.Context(), callerID(r), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorTypeServerError, CodeInternal,
			"failed to get history")
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: entries})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.models.Summary())
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, ErrorTypeNotFound, "", "no route for "+r.Method+" "+r.URL.Path)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, ErrorTypeInvalidRequest, "", r.Method+" not allowed on "+r.URL.Path)
}

// AuthError writes rejected API keys as a JSON 401. It is the
// auth.ErrorFunc the API key middleware should be built with.
func AuthError(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="mailguard"`)
	writeError(w, http.StatusUnauthorized, ErrorTypeAuthentication, CodeInvalidAPIKey, err.Error())
}

// callerID returns the user who owns this request's history.
func callerID(r *http.Request) string {
	if info, ok := auth.GetAPIKeyInfo(r.Context()); ok {
		return info.UserID
	}
	if id := logging.UserID(r.Context()); id != "" {
		return id
	}
	return AnonymousUser
}

// headerUser puts the X-User-ID header into the context when
// authentication is disabled.
func headerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if id != "" && len(id) <= maxUserIDLength {
			r = r.WithContext(logging.WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
