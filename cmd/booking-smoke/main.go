// Command booking-smoke walks one booking through the wizard against a live
// API: it loads a draft from a JSON file, advances through every step and
// submits on the review step.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wolfman30/counseling-booking/internal/api"
	"github.com/wolfman30/counseling-booking/internal/booking"
	appconfig "github.com/wolfman30/counseling-booking/internal/config"
	"github.com/wolfman30/counseling-booking/internal/drafts"
	"github.com/wolfman30/counseling-booking/internal/wizard"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

func main() {
	draftPath := flag.String("draft", "", "path to a JSON file of draft fields")
	dryRun := flag.Bool("dry-run", false, "stop on the review step without submitting")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: "text"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fields, err := readFields(*draftPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read draft: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, logger)
	ctrl := wizard.NewController(wizard.Options{
		Store:    drafts.NewMemoryStore(),
		Client:   client,
		Logger:   logger,
		Location: cfg.Location(),
	})

	state, err := run(ctx, ctrl, fields, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	printState(state)
	if state.Submission.Status != wizard.StatusSuccess && !*dryRun {
		os.Exit(2)
	}
}

func readFields(path string) (map[string]any, error) {
	if path == "" {
		return nil, fmt.Errorf("-draft is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fields, nil
}

// run fills the draft, advances to the review step and submits. A step that
// fails validation stops the walk with the field errors.
func run(ctx context.Context, ctrl *wizard.Controller, fields map[string]any, dryRun bool) (wizard.State, error) {
	ctrl.Restore(ctx)
	for name, value := range fields {
		if _, err := ctrl.Update(ctx, name, value); err != nil {
			return ctrl.State(), err
		}
	}

	for ctrl.State().Step < booking.ReviewStep {
		from := ctrl.State().Step
		state := ctrl.Next(ctx)
		if state.Step == from {
			return state, fmt.Errorf("step %d is incomplete: %v", from, state.Errors)
		}
	}
	if dryRun {
		return ctrl.State(), nil
	}
	return ctrl.Submit(ctx)
}

func printState(state wizard.State) {
	fmt.Printf("step:   %d\n", state.Step)
	fmt.Printf("status: %s\n", state.Submission.Status)
	if state.Submission.Message != "" {
		fmt.Printf("message: %s\n", state.Submission.Message)
	}
	for field, msg := range state.Errors {
		fmt.Printf("  %s: %s\n", field, msg)
	}
	if conf := state.Submission.Confirmation; conf != nil {
		fmt.Printf("appointment: %s with %s at %s (%s)\n", conf.AppointmentCode, conf.Counselor.Name, conf.AppointmentDate, conf.PaymentMethod)
	}
}
