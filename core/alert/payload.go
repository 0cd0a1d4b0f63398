package alert

import (
	"fmt"
	"strings"
)

// Payload is one critical village handed to a notifier.
type Payload struct {
	VillageID string  `json:"village_id"`
	Village   string  `json:"village"`
	WSI       float64 `json:"wsi"`
}

// Message is the rendered form notifiers send.
type Message struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Threshold float64   `json:"threshold"`
	Villages  []Payload `json:"villages"`
}

// Render builds the message for payloads crossing threshold.
func Render(payloads []Payload, threshold float64) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "The following village(s) have a Water Stress Index above %s:\n", formatWSI(threshold))
	for _, p := range payloads {
		fmt.Fprintf(&b, "- %s: %s\n", p.Village, formatWSI(p.WSI))
	}
	return Message{
		Subject:   fmt.Sprintf("[HydroAlert] Critical: %d village(s) with WSI > %s", len(payloads), formatWSI(threshold)),
		Body:      b.String(),
		Threshold: threshold,
		Villages:  payloads,
	}
}

func formatWSI(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
