package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventreg/internal/model"
	"github.com/Shivanand-hulikatti/eventreg/internal/repository"
	"github.com/Shivanand-hulikatti/eventreg/internal/service"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Replay the registration failure scenarios against demo data",
	Long: `Replay the registration failure scenarios against a freshly seeded engine:
duplicate registration, full event, past event, invalid user, invalid event
and late cancellation. Exits non-zero if any scenario does not fail with the
expected error kind.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		failed, err := runDemo(cmd.OutOrStdout(), time.Now())
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios did not fail as expected", failed, len(scenarios))
		}
		return nil
	},
}

// demoEnv is a seeded engine whose clock only moves when advance is called.
type demoEnv struct {
	engine *service.Engine
	now    time.Time
}

func newDemoEnv(start time.Time) (*demoEnv, error) {
	d := &demoEnv{now: start}
	store := repository.NewStore()
	if err := store.Seed(start); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	d.engine = service.New(store, nil, service.WithClock(func() time.Time { return d.now }))
	return d, nil
}

func (d *demoEnv) advance(by time.Duration) { d.now = d.now.Add(by) }

func (d *demoEnv) createEvent(title string, in time.Duration, capacity string) (string, error) {
	ev, err := d.engine.CreateEvent(model.CreateEventRequest{
		Title:    title,
		DateTime: d.now.Add(in).Format(time.RFC3339),
		Location: "Demo Location",
		Capacity: capacity,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprint(ev.ID), nil
}

type scenario struct {
	name        string
	description string
	want        service.Kind
	run         func(d *demoEnv) error
}

var scenarios = []scenario{
	{
		name:        "Duplicate Registration",
		description: "register user 1 for event 1, where they already hold a spot",
		want:        service.KindDuplicateRegistration,
		run: func(d *demoEnv) error {
			_, err := d.engine.RegisterForEvent("1", "1")
			return err
		},
	},
	{
		name:        "Full Event",
		description: "create an event with capacity 1, fill it, then register a second user",
		want:        service.KindEventFull,
		run: func(d *demoEnv) error {
			id, err := d.createEvent("Small Test Event", 48*time.Hour, "1")
			if err != nil {
				return err
			}
			if _, err := d.engine.RegisterForEvent(id, "1"); err != nil {
				return err
			}
			_, err = d.engine.RegisterForEvent(id, "2")
			return err
		},
	},
	{
		name:        "Past Event",
		description: "create an event an hour out, let two hours pass, then register",
		want:        service.KindPastEventRegistration,
		run: func(d *demoEnv) error {
			id, err := d.createEvent("Past Test Event", time.Hour, "50")
			if err != nil {
				return err
			}
			d.advance(2 * time.Hour)
			_, err = d.engine.RegisterForEvent(id, "1")
			return err
		},
	},
	{
		name:        "Invalid User",
		description: "register non-existent user 99999 for event 1",
		want:        service.KindUserNotFound,
		run: func(d *demoEnv) error {
			_, err := d.engine.RegisterForEvent("1", "99999")
			return err
		},
	},
	{
		name:        "Invalid Event",
		description: "register user 1 for non-existent event 99999",
		want:        service.KindEventNotFound,
		run: func(d *demoEnv) error {
			_, err := d.engine.RegisterForEvent("99999", "1")
			return err
		},
	},
	{
		name:        "Late Cancellation",
		description: "register for an event two hours out, wait 90 minutes, then cancel",
		want:        service.KindCancellationTooLate,
		run: func(d *demoEnv) error {
			id, err := d.createEvent("Soon Starting Event", 2*time.Hour, "50")
			if err != nil {
				return err
			}
			if _, err := d.engine.RegisterForEvent(id, "1"); err != nil {
				return err
			}
			d.advance(90 * time.Minute)
			_, err = d.engine.CancelRegistration(id, "1")
			return err
		},
	},
}

// runDemo runs every scenario on its own seeded engine and reports how many
// did not fail with the expected kind.
func runDemo(w io.Writer, start time.Time) (int, error) {
	failed := 0
	for i, sc := range scenarios {
		d, err := newDemoEnv(start)
		if err != nil {
			return 0, err
		}

		fmt.Fprintf(w, "%d. %s: %s\n", i+1, sc.name, sc.description)
		err = sc.run(d)

		var fe *service.Error
		switch {
		case err == nil:
			failed++
			fmt.Fprintf(w, "   FAIL unexpected success, want %s\n", sc.want)
		case !errors.As(err, &fe):
			failed++
			fmt.Fprintf(w, "   FAIL %v\n", err)
		case fe.Kind != sc.want:
			failed++
			fmt.Fprintf(w, "   FAIL %d %s: %s (want %s)\n", fe.Status(), fe.Kind, fe.Message, sc.want)
		default:
			fmt.Fprintf(w, "   ok   %d %s: %s\n", fe.Status(), fe.Kind, fe.Message)
		}
	}
	return failed, nil
}
