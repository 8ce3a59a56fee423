package monitor

import (
	"strings"

	"github.com/dotside-studios/tapboard/nfc"
)

// Alert titles.
const (
	TitleNFC     = "NFC"
	TitlePublish = "Publish"
)

// User-visible alert bodies. The tag bodies are a fixed contract; tests
// assert them verbatim.
const (
	bodyEmptyTag       = "Empty tag"
	bodyUnsupportedTag = "Unsupported tag (app)"
	bodyNotSupported   = "NFC is not supported"
	bodyDisabled       = "NFC is disabled"
	bodyPublished      = "Message published"
	bodyCanceled       = "Reading session canceled"
)

// FormatTagAlert renders the alert for a scanned tag. Empty and unsupported
// tags get their fixed bodies; otherwise only the first record is shown
// even when the message carries more.
func FormatTagAlert(tag *nfc.TagInfo) (title, body string) {
	title = "Tag"
	if sn := tag.SerialNumber(); sn != "" {
		title = "Tag " + sn
	}

	// Unsupported is checked before empty: an unsupported tag typically
	// reports no records, and must still read as unsupported.
	rec, ok := tag.FirstRecord()
	switch {
	case !tag.Supported:
		return title, bodyUnsupportedTag
	case tag.Empty || !ok:
		return title, bodyEmptyTag
	}

	var sb strings.Builder
	sb.WriteString("Message: ")
	sb.WriteString(rec.Message)
	sb.WriteString("\nRaw: ")
	sb.Write(rec.Payload)
	sb.WriteString("\nType: ")
	sb.WriteString(string(rec.Type))
	if rec.MimeType != "" {
		sb.WriteString("\nMIME: ")
		sb.WriteString(rec.MimeType)
	}
	return title, sb.String()
}

// AlertForError maps an operation error to alert text. Known capability
// conditions get their fixed bodies; anything else surfaces the error's own
// message, so a failing start/stop shows its message instead of propagating.
func AlertForError(err error) (title, body string) {
	switch {
	case nfc.IsNotSupportedError(err):
		return TitleNFC, bodyNotSupported
	case nfc.IsDisabledError(err):
		return TitleNFC, bodyDisabled
	default:
		return TitleNFC, err.Error()
	}
}
