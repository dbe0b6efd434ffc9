package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportJSON writes the most recent runs with full details as indented JSON.
func (r *Repository) ExportJSON(w io.Writer, limit int) error {
	details, err := r.exportDetails(limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(details); err != nil {
		return fmt.Errorf("store.Repository.ExportJSON: %w", err)
	}
	return nil
}

// ExportCSV writes the most recent runs as flat CSV rows, one run per line.
func (r *Repository) ExportCSV(w io.Writer, limit int) error {
	runs, err := r.GetRecentRuns(limit)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{"id", "timestamp", "task", "model", "status",
		"input_titles", "input_tokens", "output_tokens", "total_cost", "currency"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("store.Repository.ExportCSV: %w", err)
	}
	for _, run := range runs {
		row := []string{
			strconv.FormatInt(run.ID, 10),
			run.Timestamp.UTC().Format(time.RFC3339),
			run.Task,
			run.Model,
			run.Status,
			run.InputTitles,
			strconv.Itoa(run.InputTokens),
			strconv.Itoa(run.OutputTokens),
			strconv.FormatFloat(run.TotalCost, 'f', 6, 64),
			run.Currency,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("store.Repository.ExportCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("store.Repository.ExportCSV: %w", err)
	}
	return nil
}

func (r *Repository) exportDetails(limit int) ([]*RunDetails, error) {
	runs, err := r.GetRecentRuns(limit)
	if err != nil {
		return nil, err
	}
	details := make([]*RunDetails, 0, len(runs))
	for _, run := range runs {
		d, err := r.GetRunDetails(run.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}
