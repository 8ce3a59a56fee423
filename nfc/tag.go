package nfc

import (
	"fmt"
	"strings"
	"time"
)

// RecordType identifies the shape of an NDEF record as reported by the
// capability. Records always arrive pre-parsed; this package never decodes
// NDEF bytes itself.
type RecordType string

const (
	RecordText     RecordType = "text"
	RecordURI      RecordType = "uri"
	RecordMIME     RecordType = "mime"
	RecordExternal RecordType = "external"
	RecordEmpty    RecordType = "empty"
	RecordUnknown  RecordType = "unknown"
)

// Record is a single NDEF record delivered by the capability. Immutable once
// delivered; handlers must not retain and mutate it.
type Record struct {
	Type     RecordType
	TNF      uint8  // Type Name Format bits as reported (0x00-0x07)
	Message  string // decoded content (text body, URI, ...)
	Payload  []byte // raw payload bytes as carried on the tag
	MimeType string // set for mime records
	Language string // set for text records
}

// TagInfo describes one scanned tag. Owned transiently by event handlers;
// nothing in this application persists it.
type TagInfo struct {
	ID         []byte
	Type       string // tag type string, e.g. "NTAG215"
	Technology string // e.g. "ISO14443A"
	Records    []Record
	Supported  bool // the capability understood the tag
	Empty      bool // no NDEF message present
	ScannedAt  time.Time
}

// NewTagInfo builds a TagInfo for the given identifier and records.
// Supported defaults to true; Empty is derived from the record list.
func NewTagInfo(id []byte, records []Record) *TagInfo {
	return &TagInfo{
		ID:        id,
		Records:   records,
		Supported: true,
		Empty:     len(records) == 0,
		ScannedAt: time.Now(),
	}
}

// SerialNumber renders the identifier as colon-separated uppercase hex,
// e.g. "04:AB:CD:EF". Returns "" for a missing identifier.
func (t *TagInfo) SerialNumber() string {
	if len(t.ID) == 0 {
		return ""
	}
	parts := make([]string, len(t.ID))
	for i, b := range t.ID {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// FirstRecord returns the first record of the tag's message, if any.
func (t *TagInfo) FirstRecord() (Record, bool) {
	if len(t.Records) == 0 {
		return Record{}, false
	}
	return t.Records[0], true
}

// String implements fmt.Stringer for log output.
func (t *TagInfo) String() string {
	sn := t.SerialNumber()
	if sn == "" {
		sn = "<no id>"
	}
	return fmt.Sprintf("tag %s (%s, %d records)", sn, t.Type, len(t.Records))
}
