// Package protocol defines the wire types spoken by network NFC agents.
// This package is designed to be importable without pulling in UI or
// transport dependencies.
package protocol

import (
	"fmt"
	"time"
)

// TagInputRequest is the request structure for the POST /api/v1/tap endpoint
// of the built-in simulator. External tools can use this to inject tag data.
type TagInputRequest struct {
	// UID is the tag's unique identifier in hex format (e.g., "04:AB:CD:EF:12:34:56")
	// Supports formats: "04:AB:CD:EF", "04ABCDEF", "04 AB CD EF", "04-AB-CD-EF"
	UID string `json:"uid"`

	// Type is the tag type string (e.g., "MIFARE Classic 1K", "Type4", "NTAG215")
	// Optional - defaults to "Unknown"
	Type string `json:"type,omitempty"`

	// Technology is the NFC technology family (e.g., "ISO14443A", "ISO14443B")
	// Optional - will be inferred from Type if not provided
	Technology string `json:"technology,omitempty"`

	// Message contains NDEF message data (optional; omit for an empty tag)
	Message *NDEFMessageInput `json:"message,omitempty"`

	// Supported marks whether the reader understood the tag.
	// Optional - defaults to true
	Supported *bool `json:"supported,omitempty"`

	// ScannedAt is the timestamp when the tag was scanned
	// Optional - defaults to current time
	ScannedAt *time.Time `json:"scannedAt,omitempty"`

	// Source identifies where this tag data came from (e.g., "http-api", "cli")
	// Optional - defaults to "http-api"
	Source string `json:"source,omitempty"`
}

// TagInputResponse is the response structure for the POST /api/v1/tap endpoint.
type TagInputResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	UID       string `json:"uid,omitempty"` // Echo back the normalized UID
}

// Error codes for TagInputResponse
const (
	ErrCodeInvalidUID     = "INVALID_UID"
	ErrCodeInvalidNDEF    = "INVALID_NDEF"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotListening   = "NOT_LISTENING"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// Validate checks the request for structural problems and returns an error
// code from the constants above, or an empty string when the request is fine.
func (r *TagInputRequest) Validate() (code string, msg string) {
	if r.UID == "" {
		return ErrCodeInvalidUID, "uid is required"
	}
	if _, err := ParseUID(r.UID); err != nil {
		return ErrCodeInvalidUID, err.Error()
	}
	if r.Message != nil {
		for i, rec := range r.Message.Records {
			if rec.RecordType == "" && len(rec.Payload) == 0 {
				return ErrCodeInvalidNDEF, fmt.Sprintf("record %d has neither recordType nor payload", i)
			}
			switch rec.RecordType {
			case "", "text", "uri", "mime", "external":
			default:
				return ErrCodeInvalidNDEF, fmt.Sprintf("record %d has unknown recordType %q", i, rec.RecordType)
			}
			if rec.RecordType == "mime" && rec.MimeType == "" {
				return ErrCodeInvalidNDEF, fmt.Sprintf("record %d is mime but has no mimeType", i)
			}
		}
	}
	return "", ""
}
