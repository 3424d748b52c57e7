// Package export renders audit events into the structured emission formats
// named by the spec: OCSF Detection Finding, Splunk HEC, Datadog logs, and
// raw JSON Lines. The OCSF, Splunk HEC, and Datadog formats redact
// event.data again the same way the chain does before persisting, so they
// never leak sensitive values even if an upstream sanitization step were
// bypassed; JSON Lines emits each event exactly as stored, without
// re-sanitizing it.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/vex/pkg/audit"
	"github.com/codeready-toolchain/vex/pkg/redact"
)

// OCSFClassUID is the OCSF v1.7.0 Detection Finding class.
const OCSFClassUID = 2004

// OCSFDetectionFinding is a minimal OCSF v1.7.0 Detection Finding (class_uid
// 2004) projection of an audit event.
type OCSFDetectionFinding struct {
	ClassUID   int            `json:"class_uid"`
	CategoryUID int           `json:"category_uid"`
	ActivityID int            `json:"activity_id"`
	Time       int64          `json:"time"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata"`
	Finding    map[string]any `json:"finding_info"`
}

// ToOCSF renders ev as an OCSF Detection Finding.
func ToOCSF(ev *audit.Event, merkleRoot string, verified bool) (OCSFDetectionFinding, error) {
	data, err := sanitizedData(ev)
	if err != nil {
		return OCSFDetectionFinding{}, err
	}
	return OCSFDetectionFinding{
		ClassUID:    OCSFClassUID,
		CategoryUID: 2,
		ActivityID:  1,
		Time:        ev.Timestamp.UnixMilli(),
		Message:     fmt.Sprintf("vex audit event %s", ev.EventType),
		Metadata: map[string]any{
			"product": map[string]any{"name": "vex", "vendor_name": "codeready-toolchain"},
			"version": "1.7.0",
		},
		Finding: map[string]any{
			"uid":         ev.ID.String(),
			"title":       string(ev.EventType),
			"data":        data,
			"merkle_root": merkleRoot,
			"verified":    verified,
		},
	}, nil
}

// SplunkHECEvent is a Splunk HTTP Event Collector envelope.
type SplunkHECEvent struct {
	Time       float64        `json:"time"`
	Host       string         `json:"host"`
	Source     string         `json:"source"`
	SourceType string         `json:"sourcetype"`
	Index      string         `json:"index"`
	Event      map[string]any `json:"event"`
}

// ToSplunkHEC renders ev as a Splunk HEC event.
func ToSplunkHEC(ev *audit.Event, host, index, merkleRoot string, verified bool) (SplunkHECEvent, error) {
	data, err := sanitizedData(ev)
	if err != nil {
		return SplunkHECEvent{}, err
	}
	return SplunkHECEvent{
		Time:       float64(ev.Timestamp.UnixNano()) / 1e9,
		Host:       host,
		Source:     "vex",
		SourceType: "vex:audit",
		Index:      index,
		Event: map[string]any{
			"event_type":  ev.EventType,
			"data":        data,
			"merkle_root": merkleRoot,
			"verified":    verified,
		},
	}, nil
}

// DatadogLogEvent is a Datadog log intake envelope.
type DatadogLogEvent struct {
	DDSource string         `json:"ddsource"`
	DDTags   string         `json:"ddtags"`
	Service  string         `json:"service"`
	Message  string         `json:"message"`
	VEX      map[string]any `json:"vex"`
	Usr      map[string]any `json:"usr"`
}

// ToDatadog renders ev as a Datadog log event.
func ToDatadog(ev *audit.Event, ddtags, merkleRoot string, verified bool) (DatadogLogEvent, error) {
	data, err := sanitizedData(ev)
	if err != nil {
		return DatadogLogEvent{}, err
	}

	policyVersion := ""
	if ev.PolicyVersion != nil {
		policyVersion = *ev.PolicyVersion
	}
	provenance := ""
	if ev.DataProvenanceHash != nil {
		provenance = *ev.DataProvenanceHash
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return DatadogLogEvent{}, err
	}

	return DatadogLogEvent{
		DDSource: "vex",
		DDTags:   ddtags,
		Service:  "vex-audit",
		Message:  string(dataJSON),
		VEX: map[string]any{
			"merkle_root":            merkleRoot,
			"verified":               verified,
			"policy_version":         policyVersion,
			"human_review_required":  ev.HumanReviewRequired,
			"data_provenance_hash":   provenance,
		},
		Usr: map[string]any{
			"kind": ev.Actor.Kind,
			"id":   ev.Actor.ID,
		},
	}, nil
}

// ToJSONLines renders events as newline-delimited JSON, one event per line.
func ToJSONLines(events []*audit.Event) ([]byte, error) {
	var buf bytes.Buffer
	for _, ev := range events {
		line, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// sanitizedData re-applies sanitization defensively: ev.Data is already
// sanitized by the chain at log time, but export is an independent
// consumer and must not assume that invariant holds forever.
func sanitizedData(ev *audit.Event) (any, error) {
	if len(ev.Data) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(ev.Data, &v); err != nil {
		return nil, err
	}
	return redact.Sanitize(v), nil
}
