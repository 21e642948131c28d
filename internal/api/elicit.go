package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/elicitlabs/elicit/internal/engine"
	"github.com/elicitlabs/elicit/internal/log"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// maxRequestMessageChars bounds the message at the transport before the
// conversation layer applies its own stricter limit.
const maxRequestMessageChars = 10000

// Orchestrator is the session engine surface the handler needs.
// *engine.Engine satisfies it.
type Orchestrator interface {
	Handle(ctx context.Context, req engine.Request) (*engine.Response, error)
}

// elicitHandler serves the single conversation endpoint.
type elicitHandler struct {
	engine Orchestrator
	logger log.Logger
}

// elicitRequest is the POST /api/v1/elicit body.
type elicitRequest struct {
	SessionID   string `json:"sessionId,omitempty"`
	Message     string `json:"message"`
	Domain      string `json:"domain,omitempty"`
	Intensity   string `json:"intensity,omitempty"`
	GenerateNow bool   `json:"generateNow,omitempty"`
}

// elicitResponse is the success body.
type elicitResponse struct {
	SessionID            string              `json:"sessionId"`
	Message              string              `json:"responseMessage"`
	Status               string              `json:"status"`
	QuestionCount        int                 `json:"questionCount"`
	CanGenerate          bool                `json:"canGenerate"`
	IsCompleted          bool                `json:"isCompleted"`
	SuggestedTermination bool                `json:"suggestedTermination,omitempty"`
	FinalOutput          *engine.FinalOutput `json:"finalOutput,omitempty"`
}

// handle is POST /api/v1/elicit.
func (h *elicitHandler) handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, engine.CodeUnauthenticated, "X-User-ID header is required", h.logger)
		return
	}

	var req elicitRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, engine.CodeValidation, "invalid request body", h.logger)
		return
	}

	if req.Message == "" {
		writeError(w, http.StatusBadRequest, engine.CodeValidation, "message is required", h.logger)
		return
	}
	if utf8.RuneCountInString(req.Message) > maxRequestMessageChars {
		writeError(w, http.StatusBadRequest, engine.CodeValidation,
			"message must be at most 10000 characters", h.logger)
		return
	}

	resp, err := h.engine.Handle(r.Context(), engine.Request{
		UserID:      userID,
		SessionID:   req.SessionID,
		Message:     req.Message,
		Domain:      req.Domain,
		Intensity:   req.Intensity,
		GenerateNow: req.GenerateNow,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, elicitResponse{
		SessionID:            resp.SessionID,
		Message:              resp.ResponseMessage,
		Status:               string(resp.Status),
		QuestionCount:        resp.QuestionCount,
		CanGenerate:          resp.CanGenerate,
		IsCompleted:          resp.IsCompleted,
		SuggestedTermination: resp.SuggestedTermination,
		FinalOutput:          resp.FinalOutput,
	}, h.logger)
}

// writeEngineError maps classified engine failures onto the wire.
// Quota denials additionally carry rate-limit headers.
func (h *elicitHandler) writeEngineError(w http.ResponseWriter, err error) {
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		h.logger.Error("unclassified engine failure", "error", err)
		writeError(w, http.StatusInternalServerError, engine.CodeInternal, "internal server error", h.logger)
		return
	}

	if engErr.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("engine failure", "code", engErr.Code, "error", engErr)
	} else {
		h.logger.Debug("request rejected", "code", engErr.Code, "message", engErr.Message)
	}

	body := ErrorResponse{
		Error:   engErr.Message,
		Code:    engErr.Code,
		Details: engErr.Details,
	}

	// Quota denials carry limit/remaining/tier in both the headers and
	// the body, so clients can read either.
	if engErr.Quota != nil {
		limit := engErr.Quota.Limit
		remaining := engErr.Quota.Remaining
		body.Limit = &limit
		body.Remaining = &remaining
		body.Tier = string(engErr.Quota.Tier)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Tier", body.Tier)
	}
	if engErr.HTTPStatus == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "86400")
	}

	writeJSON(w, engErr.HTTPStatus, body, h.logger)
}
