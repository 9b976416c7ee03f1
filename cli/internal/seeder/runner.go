package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/vendlabs/vmhistory/internal/models"
)

// Sender delivers generated events. *client.Client satisfies it.
type Sender interface {
	SendTransaction(ctx context.Context, payload any) (*models.IngestResponse, error)
	SendState(ctx context.Context, payload any) (*models.IngestResponse, error)
	SendRaw(ctx context.Context, path string, body []byte) (*models.IngestResponse, error)
}

// Result summarizes a seeding run.
type Result struct {
	Sessions int
	Sent     int
	Failed   int
	ByKind   map[models.EventKind]int
}

// Runner handles the event seeding execution
type Runner struct {
	Config    *Config
	Sender    Sender
	Generator *Generator
	Logger    *log.Logger
}

// NewRunner creates a new seeder runner
func NewRunner(config *Config, sender Sender) *Runner {
	return &Runner{
		Config:    config,
		Sender:    sender,
		Generator: NewGenerator(config.Defaults.Seed, config.Products, config.Defaults.ErrorRate),
		Logger:    log.Default(),
	}
}

// Run sends Config.Defaults.Sessions sessions. Individual send failures are
// counted and logged; Run only fails when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.Logger.Printf("Starting vending seeder:")
	r.Logger.Printf("  Server URL: %s", r.Config.Defaults.ServerURL)
	r.Logger.Printf("  Sessions: %d", r.Config.Defaults.Sessions)
	r.Logger.Printf("  Interval: %v", r.Config.Defaults.Interval)
	r.Logger.Printf("  Products: %d", len(r.Config.Products))

	result := &Result{ByKind: make(map[models.EventKind]int)}

	for i := 0; i < r.Config.Defaults.Sessions; i++ {
		for _, step := range r.Generator.Session() {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := r.send(ctx, step); err != nil {
				r.Logger.Printf("Failed to send %s event: %v", step.Kind, err)
				result.Failed++
				continue
			}
			result.Sent++
			result.ByKind[step.Kind]++

			if r.Config.Defaults.Interval > 0 {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(r.Config.Defaults.Interval):
				}
			}
		}
		result.Sessions++
	}

	r.Logger.Printf("Seeding complete:")
	r.Logger.Printf("  Sessions: %d", result.Sessions)
	r.Logger.Printf("  Success: %d events", result.Sent)
	r.Logger.Printf("  Failed: %d events", result.Failed)

	return result, nil
}

func (r *Runner) send(ctx context.Context, step Step) error {
	var err error
	switch step.Kind {
	case models.KindTransaction:
		_, err = r.Sender.SendTransaction(ctx, step.Payload)
	case models.KindStateTransition:
		_, err = r.Sender.SendState(ctx, step.Payload)
	case models.KindLog:
		// Logs carry extra keys, so they go out raw rather than via SendLog.
		var body []byte
		body, err = json.Marshal(step.Payload)
		if err == nil {
			_, err = r.Sender.SendRaw(ctx, "/api/log", body)
		}
	default:
		err = fmt.Errorf("unknown event kind %q", step.Kind)
	}
	return err
}
