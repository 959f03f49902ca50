// seed inserts sample contacts and schedules into the configured store and
// prints an operator token for the API.
// Run: go run ./cmd/seed [operator]
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/config"
	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/infrastructure/store"
	"github.com/ErlanBelekov/wa-scheduler/internal/scheduler"
	"github.com/ErlanBelekov/wa-scheduler/internal/usecase"
)

type contactSpec struct {
	name  string
	phone string
}

var contacts = []contactSpec{
	{"Mom", "+1 555 0100"},
	{"Dad", "+1 555 0101"},
	{"Team chat", "+44 20 7946 0000"},
}

type scheduleSpec struct {
	contact int // index into contacts
	message string
	trigger func(now time.Time) domain.Trigger
}

var schedules = []scheduleSpec{
	{0, "Good morning! ☀️", func(time.Time) domain.Trigger {
		return domain.Recurring("0 8 * * *", "Every day at 8")
	}},
	{2, "Standup in 10 minutes", func(time.Time) domain.Trigger {
		return domain.Recurring("50 9 * * 1-5", "Weekdays at 9:50")
	}},
	{1, "Don't forget the dentist", func(now time.Time) domain.Trigger {
		return domain.OnceAt(now.Add(24 * time.Hour).Truncate(time.Minute))
	}},
	// Paused so a fresh database does not page anyone.
	{2, "Monthly report due", func(time.Time) domain.Trigger {
		return domain.Recurring("0 10 1 * *", "First of the month at 10")
	}},
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	operator := "operator"
	if len(os.Args) > 1 {
		operator = os.Args[1]
	}

	st, err := store.Open(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	created := make([]*domain.Contact, len(contacts))
	for i, c := range contacts {
		phone, err := domain.NormalizePhone(c.phone)
		if err != nil {
			log.Fatalf("contact %s: %v", c.name, err)
		}
		created[i], err = st.Contacts.Create(ctx, &domain.Contact{Name: c.name, Phone: phone})
		if err != nil {
			log.Fatalf("create contact %s: %v", c.name, err)
		}
		fmt.Printf("contact  %s  %s\n", created[i].ID, c.name)
	}

	now := time.Now()
	loc := cfg.Location()
	for i, s := range schedules {
		trigger := s.trigger(now)
		spec, err := scheduler.FireSpecFor(trigger, loc)
		if err != nil {
			log.Fatalf("schedule %d: %v", i, err)
		}
		next := spec.Next(now)
		c := created[s.contact]

		sched, err := st.Schedules.Create(ctx, &domain.Schedule{
			ContactID:    c.ID,
			ContactName:  c.Name,
			ContactPhone: c.Phone,
			Message:      s.message,
			Trigger:      trigger,
			IsActive:     i != len(schedules)-1,
			NextRun:      &next,
		})
		if err != nil {
			log.Fatalf("create schedule %d: %v", i, err)
		}
		fmt.Printf("schedule %s  %-9s %s -> %s (next %s)\n",
			sched.ID, trigger.Type, spec.String(), c.Name, next.In(loc).Format(time.RFC3339))
	}

	token, err := usecase.NewTokenIssuer([]byte(cfg.JWTSecret), 0).Issue(operator)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Printf("\nOperator token for %q (valid 30 days):\n%s\n", operator, token)
}
