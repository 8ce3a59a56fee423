package nfc

// Message is an NDEF message queued for publishing to the next presented
// tag. The capability performs the actual encoding and write; this side only
// states intent.
type Message struct {
	Records []Record
}

// NewTextMessage builds a single-record text message. An empty language
// defaults to "en".
func NewTextMessage(text, language string) *Message {
	if language == "" {
		language = "en"
	}
	return &Message{Records: []Record{{
		Type:     RecordText,
		TNF:      0x01,
		Message:  text,
		Payload:  []byte(text),
		Language: language,
	}}}
}

// NewURIMessage builds a single-record URI message.
func NewURIMessage(uri string) *Message {
	return &Message{Records: []Record{{
		Type:    RecordURI,
		TNF:     0x01,
		Message: uri,
		Payload: []byte(uri),
	}}}
}

// IsEmpty reports whether the message carries no records.
func (m *Message) IsEmpty() bool {
	return m == nil || len(m.Records) == 0
}
