// Package notify fans out direct messages on task lifecycle changes.
//
// Delivery is best-effort: failures are logged and dropped, and never roll
// back the store mutation that already succeeded.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/imelnik/taskdesk/internal/chat"
	"github.com/imelnik/taskdesk/internal/models"
	"github.com/imelnik/taskdesk/internal/store"
)

// Notifier sends task lifecycle notifications to assignees and posts
// closed-task records to the archive chat.
type Notifier struct {
	sender        chat.Sender
	store         store.Store
	archiveChatID int64
	log           zerolog.Logger
}

// New creates a Notifier. archiveChatID is the fixed destination for
// closed-task records.
func New(sender chat.Sender, st store.Store, archiveChatID int64, log zerolog.Logger) *Notifier {
	return &Notifier{
		sender:        sender,
		store:         st,
		archiveChatID: archiveChatID,
		log:           log,
	}
}

// TaskCreated messages the assignee about their new task.
func (n *Notifier) TaskCreated(ctx context.Context, task *models.Task) {
	text := fmt.Sprintf(
		"You have been assigned a new task.\nTitle: %s\nDescription: %s\nPriority: %s %s",
		task.Title, task.Description, task.Priority.Icon(), task.Priority,
	)
	n.send(ctx, chat.Outgoing{ChatID: task.AssignedTo, Text: text}, "task created")
}

// TaskClosed posts the structured record of a completed task to the
// archive chat, with an inline action that reverses the closure.
func (n *Notifier) TaskClosed(ctx context.Context, task *models.Task) {
	assignee := "—"
	if u, err := n.store.GetUser(ctx, task.AssignedTo); err == nil {
		assignee = u.Name
	}

	text := fmt.Sprintf(
		"Task #%d completed:\nTitle: %s\nDescription: %s\nPriority: %s %s\nAssignee: %s\nClosed at: %s",
		task.ID, task.Title, task.Description,
		task.Priority.Icon(), task.Priority,
		assignee, time.Now().Format("2006-01-02 15:04"),
	)
	out := chat.Outgoing{
		ChatID: n.archiveChatID,
		Text:   text,
		Keyboard: chat.Keyboard{
			chat.Row(chat.Button{Text: "Undo", Data: fmt.Sprintf("unarchive_%d", task.ID)}),
		},
	}
	n.send(ctx, out, "task closed")
}

// TaskReopened tells the original assignee that their task is active again.
func (n *Notifier) TaskReopened(ctx context.Context, task *models.Task) {
	text := fmt.Sprintf(
		"Task #%d has been returned for rework. You will find it under \"My tasks\".",
		task.ID,
	)
	n.send(ctx, chat.Outgoing{ChatID: task.AssignedTo, Text: text}, "task reopened")
}

func (n *Notifier) send(ctx context.Context, out chat.Outgoing, event string) {
	if _, err := n.sender.Send(ctx, out); err != nil {
		n.log.Warn().Err(err).
			Int64("chat_id", out.ChatID).
			Str("event", event).
			Msg("notification delivery failed")
	}
}
