package simnfc

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/protocol"
)

// ToTagInfo converts a validated injection request into the form delivered
// to subscribers. The request must already have passed Validate.
func ToTagInfo(req *protocol.TagInputRequest) (*nfc.TagInfo, error) {
	normalized, err := protocol.ParseUID(req.UID)
	if err != nil {
		return nil, err
	}
	id, err := hex.DecodeString(strings.ReplaceAll(normalized, ":", ""))
	if err != nil {
		return nil, err
	}

	tagType := req.Type
	if tagType == "" {
		tagType = "Unknown"
	}
	technology := req.Technology
	if technology == "" {
		technology = protocol.InferTechnology(tagType)
	}

	var records []nfc.Record
	if req.Message != nil {
		records = RecordsFromInput(req.Message.Records)
	}

	scannedAt := time.Now()
	if req.ScannedAt != nil {
		scannedAt = *req.ScannedAt
	}

	tag := &nfc.TagInfo{
		ID:         id,
		Type:       tagType,
		Technology: technology,
		Records:    records,
		Supported:  req.Supported == nil || *req.Supported,
		Empty:      len(records) == 0,
		ScannedAt:  scannedAt,
	}
	return tag, nil
}

// RecordsFromInput maps injection records to delivered records. High-level
// inputs (recordType + content) fill in sensible TNF and payload values;
// low-level inputs pass their bytes through untouched.
func RecordsFromInput(inputs []protocol.NDEFRecordInput) []nfc.Record {
	records := make([]nfc.Record, 0, len(inputs))
	for _, in := range inputs {
		rec := nfc.Record{
			Message:  in.Content,
			MimeType: in.MimeType,
			Language: in.Language,
			Payload:  in.Payload,
		}

		switch in.RecordType {
		case "text":
			rec.Type = nfc.RecordText
			rec.TNF = 0x01
			if rec.Language == "" {
				rec.Language = "en"
			}
		case "uri":
			rec.Type = nfc.RecordURI
			rec.TNF = 0x01
		case "mime":
			rec.Type = nfc.RecordMIME
			rec.TNF = 0x02
		case "external":
			rec.Type = nfc.RecordExternal
			rec.TNF = 0x04
		default:
			rec.Type = nfc.RecordUnknown
			rec.TNF = 0x05
		}
		if in.TNF != nil {
			rec.TNF = *in.TNF
		}
		if rec.Payload == nil && in.Content != "" {
			rec.Payload = []byte(in.Content)
		}

		records = append(records, rec)
	}
	return records
}
