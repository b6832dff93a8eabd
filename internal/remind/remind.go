// Package remind sends the twice-daily outstanding-task summaries.
package remind

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/imelnik/taskdesk/internal/chat"
	"github.com/imelnik/taskdesk/internal/store"
)

// Sweeper walks every registered user and messages those with unarchived
// assigned tasks. One user's failure never stops the sweep.
type Sweeper struct {
	store  store.Store
	sender chat.Sender
	log    zerolog.Logger
}

// New creates a Sweeper.
func New(st store.Store, sender chat.Sender, log zerolog.Logger) *Sweeper {
	return &Sweeper{store: st, sender: sender, log: log}
}

// Sweep sends a summary to every user with outstanding tasks.
func (s *Sweeper) Sweep(ctx context.Context) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reminder sweep: list users")
		return
	}

	reminded := 0
	for _, u := range users {
		if !u.Role.CanExecuteTasks() {
			continue
		}

		tasks, err := s.store.ListTasks(ctx, store.TaskFilter{
			AssignedTo: store.Int64(u.ID),
			Archived:   store.Bool(false),
		})
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", u.ID).Msg("reminder sweep: list tasks")
			continue
		}
		if len(tasks) == 0 {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Reminder! You have %d open task(s):\n\n", len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(&b, "- [#%d] %s (%s)\n", t.ID, t.Title, t.Priority)
		}

		if _, err := s.sender.Send(ctx, chat.Outgoing{ChatID: u.ID, Text: b.String()}); err != nil {
			s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("reminder delivery failed")
			continue
		}
		reminded++
	}

	s.log.Info().Int("users", reminded).Msg("reminder sweep finished")
}

// Schedule registers the sweep on the given cron at each spec. The caller
// owns starting and stopping the cron.
func (s *Sweeper) Schedule(ctx context.Context, c *cron.Cron, specs ...string) error {
	for _, spec := range specs {
		if _, err := c.AddFunc(spec, func() { s.Sweep(ctx) }); err != nil {
			return fmt.Errorf("schedule reminder %q: %w", spec, err)
		}
	}
	return nil
}
