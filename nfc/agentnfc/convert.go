package agentnfc

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/protocol"
)

// toTagInfo converts a broadcast tag payload into the form delivered to
// subscribers.
func toTagInfo(p *protocol.TagDataPayload) (*nfc.TagInfo, error) {
	normalized, err := protocol.ParseUID(p.UID)
	if err != nil {
		return nil, err
	}
	id, err := hex.DecodeString(strings.ReplaceAll(normalized, ":", ""))
	if err != nil {
		return nil, err
	}

	var scannedAt time.Time
	if p.ScannedAt != "" {
		scannedAt, _ = time.Parse(time.RFC3339, p.ScannedAt)
	}
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	records := recordsFromPayload(p)

	supported := true
	if p.Supported != nil {
		supported = *p.Supported
	} else if p.Error != nil && strings.Contains(strings.ToLower(*p.Error), "unsupported") {
		// Older agents report unsupported tags only through the error text.
		supported = false
	}

	return &nfc.TagInfo{
		ID:         id,
		Type:       p.Type,
		Technology: p.Technology,
		Records:    records,
		Supported:  supported,
		Empty:      len(records) == 0,
		ScannedAt:  scannedAt,
	}, nil
}

// recordsFromPayload maps the broadcast message records, falling back to a
// synthesized text record when an agent sent only the convenience text.
func recordsFromPayload(p *protocol.TagDataPayload) []nfc.Record {
	if p.Message == nil || len(p.Message.Records) == 0 {
		if p.Text == "" {
			return nil
		}
		return []nfc.Record{{
			Type:     nfc.RecordText,
			TNF:      0x01,
			Message:  p.Text,
			Payload:  []byte(p.Text),
			Language: "en",
		}}
	}

	records := make([]nfc.Record, 0, len(p.Message.Records))
	for _, in := range p.Message.Records {
		rec := nfc.Record{
			TNF:      in.TNF,
			Message:  in.Content,
			Payload:  in.Payload,
			MimeType: in.MimeType,
			Language: in.Language,
		}
		switch in.Type {
		case "text":
			rec.Type = nfc.RecordText
		case "uri":
			rec.Type = nfc.RecordURI
		case "mime":
			rec.Type = nfc.RecordMIME
		case "external":
			rec.Type = nfc.RecordExternal
		case "empty":
			rec.Type = nfc.RecordEmpty
		default:
			rec.Type = nfc.RecordUnknown
		}
		if rec.Payload == nil && in.Content != "" {
			rec.Payload = []byte(in.Content)
		}
		records = append(records, rec)
	}
	return records
}

// writeRecords maps an outgoing message to the agent's write request form.
func writeRecords(msg *nfc.Message) []protocol.WriteRecord {
	records := make([]protocol.WriteRecord, 0, len(msg.Records))
	for _, rec := range msg.Records {
		records = append(records, protocol.WriteRecord{
			Type:     string(rec.Type),
			Content:  rec.Message,
			Language: rec.Language,
		})
	}
	return records
}
