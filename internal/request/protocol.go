// Package request implements the correlation-id request/reply protocol used
// for synchronous command/response calls between the host page and the
// embedded client frame. The signaling core only generates unique request
// ids and matches responses back to their pending requests.
package request

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type Request struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId"`
}

type Response struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId"`
	Status    Status          `json:"status"`
}

// NewRequest tags a payload with a unique request id.
func NewRequest(reqType string, payload json.RawMessage) Request {
	return Request{
		Type:      reqType,
		Payload:   payload,
		RequestID: uuid.NewString(),
	}
}

// NewResponse answers a request, echoing its id so the sender can match it.
func NewResponse(req Request, payload json.RawMessage, status Status) Response {
	return Response{
		Type:      req.Type + "_response",
		Payload:   payload,
		RequestID: req.RequestID,
		Status:    status,
	}
}
