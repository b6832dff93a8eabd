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

// showAdminMenu shows the administrator's home menu.
func (d *Dispatcher) showAdminMenu(ctx context.Context, chatID int64) {
	d.send(ctx, chat.Outgoing{
		ChatID: chatID,
		Text:   "Choose an action (administrator):",
		Keyboard: chat.Keyboard{
			chat.Row(
				chat.Button{Text: "Add task", Data: "add_task"},
				chat.Button{Text: "View tasks", Data: "view_tasks_admin"},
			),
			chat.Row(
				chat.Button{Text: "Manage users", Data: "manage_users"},
			),
		},
	})
}

// adminCallback handles the static admin menu tags. It reports whether
// the tag belonged to the admin branch.
func (d *Dispatcher) adminCallback(ctx context.Context, u chat.Update, data string) bool {
	switch data {
	case "add_task":
		d.sessions.Set(u.UserID, Session{State: StateAddingTitle})
		d.reply(ctx, u.ChatID, "Enter the task title:")
		return true

	case "view_tasks_admin":
		d.showAdminTaskFilters(ctx, u.ChatID)
		return true

	case "manage_users":
		d.send(ctx, chat.Outgoing{
			ChatID: u.ChatID,
			Text:   "User management:",
			Keyboard: chat.Keyboard{
				chat.Row(chat.Button{Text: "Add programmer", Data: "add_programmer"}),
				chat.Row(chat.Button{Text: "List all users", Data: "list_users"}),
			},
		})
		return true

	case "add_programmer":
		d.sessions.Set(u.UserID, Session{State: StateAddingProgrammer})
		d.reply(ctx, u.ChatID, "Send a line: <chat id> <name>\nFor example: 12345 Ivan")
		return true

	case "list_users":
		d.listUsers(ctx, u.ChatID)
		return true
	}

	if p, ok := strings.CutPrefix(data, "filter_priority_"); ok {
		d.adminFilterTasks(ctx, u.ChatID, p)
		return true
	}
	return false
}

// showAdminTaskFilters offers the priority filter over unarchived tasks.
func (d *Dispatcher) showAdminTaskFilters(ctx context.Context, chatID int64) {
	d.send(ctx, chat.Outgoing{
		ChatID:   chatID,
		Text:     "Choose a priority (active tasks only):",
		Keyboard: priorityKeyboard("filter_priority_", true),
	})
}

// adminFilterTasks lists unarchived tasks, optionally narrowed to one
// priority ("ALL" leaves the priority unconstrained).
func (d *Dispatcher) adminFilterTasks(ctx context.Context, chatID int64, priority string) {
	filter := store.TaskFilter{Archived: store.Bool(false)}
	if priority != "ALL" {
		filter.Priority = models.Priority(priority)
	}

	tasks, err := d.store.ListTasks(ctx, filter)
	if err != nil {
		d.log.Error().Err(err).Msg("list tasks for admin")
		d.reply(ctx, chatID, msgStoreError)
		return
	}
	if len(tasks) == 0 {
		d.reply(ctx, chatID, "No tasks match the selected filter.")
		return
	}

	users, err := d.store.ListUsers(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("list users for task display")
		d.reply(ctx, chatID, msgStoreError)
		return
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	var b strings.Builder
	b.WriteString("Task list:\n\n")
	for _, t := range tasks {
		assignee := names[t.AssignedTo]
		if assignee == "" {
			assignee = "—"
		}
		fmt.Fprintf(&b, "ID: %d\n", t.ID)
		fmt.Fprintf(&b, "Title: %s\n", t.Title)
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
		fmt.Fprintf(&b, "Priority: %s %s\n", t.Priority.Icon(), t.Priority)
		fmt.Fprintf(&b, "Status: %s\n", t.Status)
		fmt.Fprintf(&b, "Assignee: %s\n", assignee)
		fmt.Fprintf(&b, "Created: %s\n---\n", t.CreatedAt.Format("2006-01-02 15:04"))
	}
	d.reply(ctx, chatID, b.String())
}

// listUsers prints every registered user.
func (d *Dispatcher) listUsers(ctx context.Context, chatID int64) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("list users")
		d.reply(ctx, chatID, msgStoreError)
		return
	}
	if len(users) == 0 {
		d.reply(ctx, chatID, "No users found.")
		return
	}

	var b strings.Builder
	b.WriteString("Registered users:\n\n")
	for _, u := range users {
		fmt.Fprintf(&b, "ID: %d, Name: %s, Role: %s\n", u.ID, u.Name, u.Role)
	}
	d.reply(ctx, chatID, b.String())
}

// sendPriorityKeyboard asks the admin to pick the new task's priority.
func (d *Dispatcher) sendPriorityKeyboard(ctx context.Context, chatID int64) {
	d.send(ctx, chat.Outgoing{
		ChatID:   chatID,
		Text:     "Choose the task priority:",
		Keyboard: priorityKeyboard("priority_", false),
	})
}

// adminPriorityChosen records the priority and moves to assignee choice.
// Tags carrying an unknown priority are dropped like any unmatched tag.
func (d *Dispatcher) adminPriorityChosen(ctx context.Context, u chat.Update, sess Session, p models.Priority) {
	if !p.Valid() {
		return
	}
	sess.Priority = p
	sess.State = StateAddingAssignee
	d.sessions.Set(u.UserID, sess)

	users, err := d.store.ListUsers(ctx)
	if err != nil || len(users) == 0 {
		d.log.Error().Err(err).Msg("list users for assignment")
		d.reply(ctx, u.ChatID, msgStoreError)
		return
	}

	// Every registered user is a candidate assignee, admins included.
	kb := make(chat.Keyboard, 0, len(users))
	for _, cand := range users {
		kb = append(kb, chat.Row(chat.Button{
			Text: fmt.Sprintf("%s (%s)", cand.Name, cand.Role),
			Data: fmt.Sprintf("assign_%d", cand.ID),
		}))
	}
	d.send(ctx, chat.Outgoing{
		ChatID:   u.ChatID,
		Text:     "Choose an assignee:",
		Keyboard: kb,
	})
}

// adminAssigneeChosen persists the accumulated task and ends the flow.
// The session is cleared whether or not the insert succeeded.
func (d *Dispatcher) adminAssigneeChosen(ctx context.Context, u chat.Update, sess Session, assigneeID int64) {
	defer d.sessions.Clear(u.UserID)

	task := &models.Task{
		Title:       sess.Title,
		Description: sess.Description,
		Priority:    sess.Priority,
		AssignedTo:  assigneeID,
	}
	if err := d.store.CreateTask(ctx, task); err != nil {
		d.log.Error().Err(err).Msg("create task")
		d.reply(ctx, u.ChatID, msgStoreError)
		return
	}

	d.log.Info().Int64("task_id", task.ID).Int64("assignee", assigneeID).Msg("task created")
	d.reply(ctx, u.ChatID, fmt.Sprintf("Task #%d created.", task.ID))
	d.notifier.TaskCreated(ctx, task)
}

// adminAddProgrammer parses "<chat id> <name>" and registers the user.
// Malformed input re-prompts without advancing the session, so the admin
// retries the same step.
func (d *Dispatcher) adminAddProgrammer(ctx context.Context, u chat.Update) {
	fields := strings.Fields(u.Text)
	if len(fields) < 2 {
		d.reply(ctx, u.ChatID, "Send: <chat id> <name>\nFor example: 12345 Ivan")
		return
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		d.reply(ctx, u.ChatID, "The chat id must be a number.\nFor example: 12345 Ivan")
		return
	}
	name := strings.Join(fields[1:], " ")

	d.sessions.Clear(u.UserID)

	newUser := &models.User{ID: id, Name: name, Role: models.RoleProgrammer}
	if err := d.store.AddUser(ctx, newUser); err != nil {
		d.log.Warn().Err(err).Int64("new_user_id", id).Msg("add programmer")
		d.reply(ctx, u.ChatID, "Could not add the user. The id may already be registered.")
		return
	}
	d.reply(ctx, u.ChatID, fmt.Sprintf("Added programmer: %s (ID: %d).", name, id))
}

// unarchiveTask reverses a closure: the task returns to the active list
// and the original assignee is told it has been reopened.
func (d *Dispatcher) unarchiveTask(ctx context.Context, chatID, taskID int64) {
	task, err := d.store.GetTask(ctx, taskID)
	if err != nil {
		if isNotFound(err) {
			d.reply(ctx, chatID, msgTaskNotFound)
		} else {
			d.log.Error().Err(err).Int64("task_id", taskID).Msg("get task for unarchive")
			d.reply(ctx, chatID, msgStoreError)
		}
		return
	}

	if err := d.store.ReopenTask(ctx, taskID); err != nil {
		d.log.Error().Err(err).Int64("task_id", taskID).Msg("reopen task")
		d.reply(ctx, chatID, msgStoreError)
		return
	}

	d.log.Info().Int64("task_id", taskID).Msg("task unarchived")
	d.reply(ctx, chatID, fmt.Sprintf("Task #%d returned from the archive to the active list.", taskID))
	d.notifier.TaskReopened(ctx, task)
}

// priorityKeyboard builds the five-priority inline keyboard with the
// given tag prefix, optionally headed by an "All tasks" row.
func priorityKeyboard(prefix string, withAll bool) chat.Keyboard {
	var kb chat.Keyboard
	if withAll {
		kb = append(kb, chat.Row(chat.Button{Text: "All tasks", Data: prefix + "ALL"}))
	}
	kb = append(kb,
		chat.Row(
			priorityButton(prefix, models.PriorityRed),
			priorityButton(prefix, models.PriorityOrange),
			priorityButton(prefix, models.PriorityYellow),
		),
		chat.Row(
			priorityButton(prefix, models.PriorityGreen),
			priorityButton(prefix, models.PriorityBlue),
		),
	)
	return kb
}

func priorityButton(prefix string, p models.Priority) chat.Button {
	return chat.Button{
		Text: fmt.Sprintf("%s %s", p.Icon(), p),
		Data: prefix + string(p),
	}
}
