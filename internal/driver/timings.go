package driver

import (
	"encoding/json"
	"fmt"

	"autoplugin/internal/diag"
	"autoplugin/internal/observ"
	"autoplugin/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// appendTimingDiagnostic records the timer report as an ObsTimings
// diagnostic whose single note holds the JSON payload. It is added even
// when the bag is full.
func appendTimingDiagnostic(bag *diag.Bag, payload timingPayload) {
	if bag == nil {
		return
	}
	if payload.Kind == "" {
		payload.Kind = "pass"
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	subject := payload.Path
	if subject == "" {
		subject = payload.Kind
	}
	entry := diag.NewUnit(diag.SevInfo, diag.ObsTimings, subject, msg).
		WithNote(source.Span{}, string(data))

	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
