package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/imelnik/taskdesk/internal/chat"
	"github.com/imelnik/taskdesk/internal/models"
	"github.com/imelnik/taskdesk/internal/store"
)

// programmerCallback handles the programmer action set. Admins reach it
// too, acting as assignees for tasks assigned to themselves.
func (d *Dispatcher) programmerCallback(ctx context.Context, u chat.Update, data string) {
	switch data {
	case "my_tasks", "back_to_filter":
		d.showProgrammerFilters(ctx, u.UserID, u.ChatID)
		return
	case "back_to_main":
		d.showProgrammerMenu(ctx, u.UserID, u.ChatID)
		return
	}

	if p, ok := strings.CutPrefix(data, "my_filter_"); ok {
		d.programmerTaskList(ctx, u.UserID, u.ChatID, p)
		return
	}
	if rest, ok := strings.CutPrefix(data, "close_"); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			d.closeTask(ctx, u.UserID, u.ChatID, id)
		}
		return
	}
	// Unmatched tags are dropped silently.
}

// showProgrammerMenu shows the programmer home menu, replacing the bot's
// previous message in this chat.
func (d *Dispatcher) showProgrammerMenu(ctx context.Context, userID, chatID int64) {
	d.setProgrammerState(userID, StateProgrammerMenu)
	d.sendAndReplace(ctx, userID, chat.Outgoing{
		ChatID: chatID,
		Text:   "Main menu (programmer):",
		Keyboard: chat.Keyboard{
			chat.Row(chat.Button{Text: "My tasks", Data: "my_tasks"}),
		},
	})
}

// showProgrammerFilters is step one of viewing tasks: pick a priority.
func (d *Dispatcher) showProgrammerFilters(ctx context.Context, userID, chatID int64) {
	d.setProgrammerState(userID, StateProgrammerFilter)

	kb := priorityKeyboard("my_filter_", true)
	kb = append(kb, chat.Row(chat.Button{Text: "Back", Data: "back_to_main"}))
	d.sendAndReplace(ctx, userID, chat.Outgoing{
		ChatID:   chatID,
		Text:     "Choose a priority to filter your tasks:",
		Keyboard: kb,
	})
}

// programmerTaskList is step two: the caller's unarchived tasks, with a
// close button per incomplete task. Closing does not refresh the list;
// the session stays at the task-list state.
func (d *Dispatcher) programmerTaskList(ctx context.Context, userID, chatID int64, priority string) {
	d.setProgrammerState(userID, StateProgrammerTaskList)

	filter := store.TaskFilter{
		AssignedTo: store.Int64(userID),
		Archived:   store.Bool(false),
	}
	if priority != "ALL" {
		filter.Priority = models.Priority(priority)
	}

	tasks, err := d.store.ListTasks(ctx, filter)
	if err != nil {
		d.log.Error().Err(err).Int64("user_id", userID).Msg("list programmer tasks")
		d.sendAndReplace(ctx, userID, chat.Outgoing{ChatID: chatID, Text: msgStoreError})
		return
	}
	if len(tasks) == 0 {
		d.sendAndReplace(ctx, userID, chat.Outgoing{
			ChatID: chatID,
			Text:   "No tasks match the selected filter.",
			Keyboard: chat.Keyboard{
				chat.Row(chat.Button{Text: "Back", Data: "back_to_filter"}),
			},
		})
		return
	}

	var b strings.Builder
	b.WriteString("Your tasks:\n\n")
	var kb chat.Keyboard
	for _, t := range tasks {
		fmt.Fprintf(&b, "Priority: %s %s\n", t.Priority.Icon(), t.Priority)
		fmt.Fprintf(&b, "Title: #%d %s\n", t.ID, t.Title)
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
		fmt.Fprintf(&b, "Status: %s\n\n", t.Status)

		if t.Status == models.StatusIncomplete {
			kb = append(kb, chat.Row(chat.Button{
				Text: fmt.Sprintf("✅ Done: #%d", t.ID),
				Data: fmt.Sprintf("close_%d", t.ID),
			}))
		}
	}
	kb = append(kb, chat.Row(chat.Button{Text: "Back", Data: "back_to_filter"}))

	d.sendAndReplace(ctx, userID, chat.Outgoing{
		ChatID:   chatID,
		Text:     b.String(),
		Keyboard: kb,
	})
}

// closeTask marks the task done and archived, confirms to the closer, and
// posts the archive record.
func (d *Dispatcher) closeTask(ctx context.Context, userID, chatID, taskID int64) {
	if err := d.store.CloseTask(ctx, taskID); err != nil {
		if isNotFound(err) {
			d.sendAndReplace(ctx, userID, chat.Outgoing{ChatID: chatID, Text: msgTaskNotFound})
		} else {
			d.log.Error().Err(err).Int64("task_id", taskID).Msg("close task")
			d.sendAndReplace(ctx, userID, chat.Outgoing{ChatID: chatID, Text: msgStoreError})
		}
		return
	}

	d.log.Info().Int64("task_id", taskID).Int64("user_id", userID).Msg("task closed")
	d.sendAndReplace(ctx, userID, chat.Outgoing{
		ChatID: chatID,
		Text:   fmt.Sprintf("Task #%d closed and archived ✅", taskID),
	})

	task, err := d.store.GetTask(ctx, taskID)
	if err != nil {
		d.log.Warn().Err(err).Int64("task_id", taskID).Msg("load closed task for archive post")
		return
	}
	d.notifier.TaskClosed(ctx, task)
}

// setProgrammerState moves the session to a navigation state while
// keeping the remembered last-message id.
func (d *Dispatcher) setProgrammerState(userID int64, state State) {
	sess, _ := d.sessions.Get(userID)
	sess.State = state
	d.sessions.Set(userID, sess)
}

// sendAndReplace deletes the bot's previous message in the programmer
// flow before sending the next one, so the chat holds a single live menu.
// Deletion failures are ignored; the message may already be gone.
func (d *Dispatcher) sendAndReplace(ctx context.Context, userID int64, out chat.Outgoing) {
	sess, _ := d.sessions.Get(userID)
	if sess.LastMessageID != 0 {
		_ = d.sender.Delete(ctx, out.ChatID, sess.LastMessageID)
	}

	id, err := d.sender.Send(ctx, out)
	if err != nil {
		d.log.Warn().Err(err).Int64("chat_id", out.ChatID).Msg("send programmer message")
		return
	}

	sess, _ = d.sessions.Get(userID)
	sess.LastMessageID = id
	d.sessions.Set(userID, sess)
}
