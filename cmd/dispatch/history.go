package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"casualty-dispatch/internal/database"
	"casualty-dispatch/internal/models"
)

// historyQuery selects what printHistory reads back from the journal
type historyQuery struct {
	Passes     int
	PatientID  string
	VehicleID  string
	HospitalID string
}

func (q historyQuery) requested() bool {
	return q.Passes > 0 || q.PatientID != "" || q.VehicleID != "" || q.HospitalID != ""
}

func printHistory(ctx context.Context, w io.Writer, journal database.Journal, q historyQuery) error {
	if q.Passes > 0 {
		passes, total, err := journal.Passes().List(ctx, q.Passes, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Journal: %d most recent of %d passes\n", len(passes), total)
		for _, p := range passes {
			fmt.Fprintf(w, "  %s  %s  %-15s %s assigned=%d pending=%d traffic=%.2f\n",
				p.StartedAt.Format("2006-01-02 15:04"), p.ID, p.Trigger, p.Strategy,
				p.Assigned, p.Pending, p.TrafficFactor)
			if p.Assigned == 0 {
				continue
			}
			_, bindings, err := journal.Passes().GetByID(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("failed to load pass %s: %w", p.ID, err)
			}
			printBindings(w, "    ", bindings)
		}
	}

	if q.PatientID != "" {
		b, err := journal.Bindings().GetByPatient(ctx, q.PatientID)
		switch {
		case errors.Is(err, database.ErrNotFound):
			fmt.Fprintf(w, "\nPatient %s: no journaled binding\n", q.PatientID)
		case err != nil:
			return err
		default:
			fmt.Fprintf(w, "\nPatient %s:\n", q.PatientID)
			printBindings(w, "  ", []models.BindingRecord{*b})
		}
	}

	if q.VehicleID != "" {
		bindings, err := journal.Bindings().ListByVehicle(ctx, q.VehicleID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nVehicle %s: %d journaled bindings\n", q.VehicleID, len(bindings))
		printBindings(w, "  ", bindings)
	}

	if q.HospitalID != "" {
		bindings, err := journal.Bindings().ListByHospital(ctx, q.HospitalID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nHospital %s: %d journaled admissions\n", q.HospitalID, len(bindings))
		printBindings(w, "  ", bindings)
	}
	return nil
}

func printBindings(w io.Writer, indent string, bindings []models.BindingRecord) {
	if len(bindings) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%sPATIENT\tSEVERITY\tVEHICLE\tHOSPITAL\tCOST\tASSIGNED\n", indent)
	for _, b := range bindings {
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%.3f\t%s\n", indent,
			b.PatientID, b.Severity, b.VehicleID, b.HospitalID, b.Cost, b.AssignedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
