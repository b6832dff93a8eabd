// Package bot implements the conversation state machine: a role
// dispatcher over inbound chat events plus the per-user session store
// backing the multi-step flows.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/imelnik/taskdesk/internal/chat"
	"github.com/imelnik/taskdesk/internal/models"
	"github.com/imelnik/taskdesk/internal/notify"
	"github.com/imelnik/taskdesk/internal/store"
)

// Reply texts. Store failures all collapse into one generic message; the
// caller only ever learns that the operation was abandoned.
const (
	msgStoreError    = "Something went wrong. Please try again."
	msgNotRegistered = "You are not registered. Ask an administrator to add you."
	msgTaskNotFound  = "Task not found."
)

// Config carries the static dispatcher configuration, read once at startup.
type Config struct {
	// Admins is the allow-list of chat ids that may bootstrap as the
	// first administrator when the user table is empty.
	Admins []int64
}

// Dispatcher routes every inbound event to the admin or programmer flow
// based on the sender's stored role and current session state.
type Dispatcher struct {
	store    store.Store
	sessions *SessionStore
	sender   chat.Sender
	notifier *notify.Notifier
	cfg      Config
	log      zerolog.Logger
}

// New creates a Dispatcher with its dependencies injected.
func New(st store.Store, sessions *SessionStore, sender chat.Sender, notifier *notify.Notifier, cfg Config, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    st,
		sessions: sessions,
		sender:   sender,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

// HandleUpdate processes one inbound event to completion.
func (d *Dispatcher) HandleUpdate(ctx context.Context, u chat.Update) {
	switch {
	case u.Command == "start":
		d.handleStart(ctx, u)
	case u.Callback != "":
		d.handleCallback(ctx, u)
	case u.Text != "":
		d.handleText(ctx, u)
	}
}

// handleStart implements the /start command, including the one-time
// bootstrap: the very first sender becomes the first administrator if
// their id is on the allow-list.
func (d *Dispatcher) handleStart(ctx context.Context, u chat.Update) {
	n, err := d.store.CountUsers(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("count users")
		d.reply(ctx, u.ChatID, msgStoreError)
		return
	}

	if n == 0 {
		if !d.allowListed(u.UserID) {
			d.reply(ctx, u.ChatID, "No administrators are registered yet, and your id is not on the allow-list. Contact the operator.")
			return
		}
		name := u.UserName
		if name == "" {
			name = "Admin"
		}
		first := &models.User{ID: u.UserID, Name: name, Role: models.RoleAdmin}
		if err := d.store.AddUser(ctx, first); err != nil {
			d.log.Error().Err(err).Int64("user_id", u.UserID).Msg("bootstrap first admin")
			d.reply(ctx, u.ChatID, msgStoreError)
			return
		}
		d.log.Info().Int64("user_id", u.UserID).Msg("bootstrapped first administrator")
		d.reply(ctx, u.ChatID, "You have been registered as the first administrator.")
		d.showHomeMenu(ctx, first, u.ChatID)
		return
	}

	user, err := d.store.GetUser(ctx, u.UserID)
	if err != nil {
		d.reply(ctx, u.ChatID, msgNotRegistered)
		return
	}
	d.showHomeMenu(ctx, user, u.ChatID)
}

// handleCallback routes a button press by exact tag. Unmatched tags
// inside a recognized role branch are dropped without a reply.
func (d *Dispatcher) handleCallback(ctx context.Context, u chat.Update) {
	user, err := d.store.GetUser(ctx, u.UserID)
	if err != nil {
		d.reply(ctx, u.ChatID, msgNotRegistered)
		return
	}

	data := u.Callback

	// Reversing the archive is honored for admins regardless of the
	// caller's current session state.
	if rest, ok := strings.CutPrefix(data, "unarchive_"); ok {
		if !user.Role.CanManageTasks() {
			d.reply(ctx, u.ChatID, "You do not have permission to undo this.")
			return
		}
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			d.unarchiveTask(ctx, u.ChatID, id)
		}
		return
	}

	// Mid-flow callbacks of the task-creation flow come before the
	// static menu tags: the same press means different things depending
	// on the caller's state.
	if sess, ok := d.sessions.Get(u.UserID); ok && user.Role.CanManageTasks() {
		switch sess.State {
		case StateAddingPriority:
			if p, ok := strings.CutPrefix(data, "priority_"); ok {
				d.adminPriorityChosen(ctx, u, sess, models.Priority(p))
				return
			}
		case StateAddingAssignee:
			if rest, ok := strings.CutPrefix(data, "assign_"); ok {
				if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
					d.adminAssigneeChosen(ctx, u, sess, id)
				}
				return
			}
		}
	}

	if user.Role.CanManageTasks() && d.adminCallback(ctx, u, data) {
		return
	}
	if user.Role.CanExecuteTasks() {
		d.programmerCallback(ctx, u, data)
	}
}

// handleText interprets free text according to the caller's current
// session state only. With no state recorded, or in a button-driven
// state, the text is dropped and the home menu is re-shown.
func (d *Dispatcher) handleText(ctx context.Context, u chat.Update) {
	user, err := d.store.GetUser(ctx, u.UserID)
	if err != nil {
		d.reply(ctx, u.ChatID, msgNotRegistered)
		return
	}

	sess, ok := d.sessions.Get(u.UserID)
	if !ok {
		d.showHomeMenu(ctx, user, u.ChatID)
		return
	}

	switch sess.State {
	case StateAddingTitle:
		sess.Title = u.Text
		sess.State = StateAddingDescription
		d.sessions.Set(u.UserID, sess)
		d.reply(ctx, u.ChatID, "Enter the task description:")

	case StateAddingDescription:
		sess.Description = u.Text
		sess.State = StateAddingPriority
		d.sessions.Set(u.UserID, sess)
		d.sendPriorityKeyboard(ctx, u.ChatID)

	case StateAddingProgrammer:
		d.adminAddProgrammer(ctx, u)

	default:
		// A button-driven state received free text: reset to the home
		// menu rather than erroring.
		if user.Role.CanManageTasks() {
			d.sessions.Clear(u.UserID)
		}
		d.showHomeMenu(ctx, user, u.ChatID)
	}
}

// showHomeMenu shows the role's base menu.
func (d *Dispatcher) showHomeMenu(ctx context.Context, user *models.User, chatID int64) {
	if user.Role.CanManageTasks() {
		d.showAdminMenu(ctx, chatID)
		return
	}
	d.showProgrammerMenu(ctx, user.ID, chatID)
}

func (d *Dispatcher) allowListed(userID int64) bool {
	for _, id := range d.cfg.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// reply sends a plain text message, logging delivery failures.
func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	d.send(ctx, chat.Outgoing{ChatID: chatID, Text: text})
}

func (d *Dispatcher) send(ctx context.Context, out chat.Outgoing) {
	if _, err := d.sender.Send(ctx, out); err != nil {
		d.log.Warn().Err(err).Int64("chat_id", out.ChatID).Msg("send reply")
	}
}

// isNotFound unwraps store errors down to the not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
