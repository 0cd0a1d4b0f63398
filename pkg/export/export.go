// Package export writes dispatch logs for reporting.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kilianp07/hydroalert/core/model"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Header is the CSV header row.
var Header = []string{"id", "tanker_id", "village_id", "route_id", "status", "dispatched_at", "estimated_arrival", "delivered_at", "notes"}

// Write encodes logs in format.
func Write(w io.Writer, format string, logs []model.DispatchLog) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, logs)
	case FormatCSV:
		return WriteCSV(w, logs)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteJSON writes the logs as one JSON array.
func WriteJSON(w io.Writer, logs []model.DispatchLog) error {
	if logs == nil {
		logs = []model.DispatchLog{}
	}
	return json.NewEncoder(w).Encode(logs)
}

// WriteCSV writes one row per log. Times are RFC3339; an undelivered log
// has an empty delivered_at.
func WriteCSV(w io.Writer, logs []model.DispatchLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, l := range logs {
		var delivered string
		if l.DeliveredAt != nil {
			delivered = l.DeliveredAt.UTC().Format(time.RFC3339)
		}
		rec := []string{
			l.ID,
			l.TankerID,
			l.VillageID,
			l.RouteID,
			l.Status.String(),
			l.DispatchedAt.UTC().Format(time.RFC3339),
			l.EstimatedArrival.UTC().Format(time.RFC3339),
			delivered,
			l.Notes,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
