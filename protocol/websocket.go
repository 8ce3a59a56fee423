package protocol

import "encoding/json"

// WebSocket message type constants
const (
	WSTypeTagData        = "tagData"
	WSTypeDeviceStatus   = "deviceStatus"
	WSTypeWriteRequest   = "writeRequest"
	WSTypeWriteResponse  = "writeResponse"
	WSTypeSessionRevoked = "sessionRevoked"
	WSTypeError          = "error"
)

// WebSocketMessage is the generic message envelope for WebSocket communication.
// Payload stays raw so the receiver can decode it once the type is known.
type WebSocketMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebSocketRequest is an outgoing request to an agent.
type WebSocketRequest struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// WebSocketResponse is an agent's response to a request.
type WebSocketResponse struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// TagDataPayload is the payload structure broadcast when a tag is scanned.
type TagDataPayload struct {
	UID        string              `json:"uid"`
	Type       string              `json:"type"`
	Technology string              `json:"technology"`
	ScannedAt  string              `json:"scannedAt"` // RFC3339 format
	Text       string              `json:"text"`      // Extracted text content
	Message    *NDEFMessagePayload `json:"message,omitempty"`
	Supported  *bool               `json:"supported,omitempty"` // Absent on older agents; derived from Error then
	Error      *string             `json:"err"`
}

// DeviceStatusPayload is the payload for device status updates.
type DeviceStatusPayload struct {
	Connected   bool   `json:"connected"`
	Message     string `json:"message"`
	CardPresent bool   `json:"cardPresent"`
}

// WriteRequestPayload is the payload for write requests.
type WriteRequestPayload struct {
	Records []WriteRecord `json:"records"`
}

// WriteRecord represents a single NDEF record in a write request.
type WriteRecord struct {
	Type     string `json:"type"`               // "text" or "uri"
	Content  string `json:"content"`            // Text or URI content
	Language string `json:"language,omitempty"` // Language code (default: "en")
}

// SessionRevokedPayload is sent by an agent when it terminates the client's
// session, e.g. because another client claimed it.
type SessionRevokedPayload struct {
	Reason string `json:"reason"`
}
