package protocol

// NDEFMessageInput represents an NDEF message for input.
type NDEFMessageInput struct {
	Records []NDEFRecordInput `json:"records"`
}

// NDEFRecordInput represents a single NDEF record for input.
// Supports both high-level (type+content) and low-level (raw payload) forms.
type NDEFRecordInput struct {
	// High-level form (preferred for simple records)
	RecordType string `json:"recordType,omitempty"` // "text", "uri", "mime", "external"
	Content    string `json:"content,omitempty"`    // Text content or URI
	Language   string `json:"language,omitempty"`   // Language code for text (default: "en")
	MimeType   string `json:"mimeType,omitempty"`   // MIME type for mime records

	// Low-level form (for advanced use cases; bytes are base64 in JSON)
	TNF     *uint8 `json:"tnf,omitempty"`
	Type    []byte `json:"type,omitempty"`
	ID      []byte `json:"id,omitempty"`
	Payload []byte `json:"payload,omitempty"`
}

// NDEFRecordPayload is the JSON-friendly representation of an NDEF record as
// broadcast by agents. Records arrive already parsed; Content carries the
// decoded message and Payload the raw bytes.
type NDEFRecordPayload struct {
	Type     string `json:"type"`              // "text", "uri", "mime", "external", "empty", "unknown"
	Content  string `json:"content,omitempty"` // Decoded content
	Language string `json:"language,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	TNF      uint8  `json:"tnf"`
	ID       string `json:"id,omitempty"`
	Payload  []byte `json:"payload"`
}

// NDEFMessagePayload is the JSON-friendly representation of an NDEF message.
type NDEFMessagePayload struct {
	Type    string              `json:"type"` // "ndef"
	Records []NDEFRecordPayload `json:"records"`
}
