// Package export renders run results in formats operators paste into
// spreadsheets or hand to downstream tooling.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/cleanbear/dispatch/core/assign"
	"github.com/cleanbear/dispatch/core/model"
)

var csvHeader = []string{
	"job_id", "date", "service_type", "status", "technician_id",
	"technician_name", "travel_minutes", "start_time", "end_time",
	"time_status", "reason",
}

// WriteCSV writes every job outcome of a run as one CSV row, assigned jobs
// first, then failed, then deferred.
func WriteCSV(w io.Writer, res assign.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, bucket := range [][]model.Assignment{res.Assigned, res.Failed, res.Deferred} {
		for _, a := range bucket {
			rec := []string{
				a.JobID,
				a.Date,
				a.ServiceType,
				string(a.Status),
				a.TechnicianID,
				a.TechnicianName,
				travelField(a),
				a.Start,
				a.End,
				string(a.TimeStatus),
				string(a.Reason),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// travelField renders travel minutes to one decimal, matching the HTTP
// response. Jobs that never got a technician show an empty cell.
func travelField(a model.Assignment) string {
	if a.Status != model.StatusAssigned {
		return ""
	}
	return strconv.FormatFloat(a.TravelMinutes, 'f', 1, 64)
}
