package bot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imelnik/taskdesk/internal/chat"
	"github.com/imelnik/taskdesk/internal/models"
	"github.com/imelnik/taskdesk/internal/notify"
	"github.com/imelnik/taskdesk/internal/store"
)

const archiveChatID int64 = -900

// testBot is the full wiring of a dispatcher over a real store and an
// in-memory transport.
type testBot struct {
	d     *Dispatcher
	store store.Store
	mem   *chat.Memory
}

func newTestBot(t *testing.T, admins ...int64) *testBot {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	mem := chat.NewMemory()
	log := zerolog.Nop()
	notifier := notify.New(mem, s, archiveChatID, log)
	d := New(s, NewSessionStore(), mem, notifier, Config{Admins: admins}, log)

	return &testBot{d: d, store: s, mem: mem}
}

func (b *testBot) addUser(t *testing.T, id int64, name string, role models.Role) {
	t.Helper()
	require.NoError(t, b.store.AddUser(context.Background(), &models.User{ID: id, Name: name, Role: role}))
}

// update builders keep the flow tests readable.

func cmdUpdate(userID int64, command string) chat.Update {
	return chat.Update{UserID: userID, UserName: "User", ChatID: userID, Command: command}
}

func textUpdate(userID int64, text string) chat.Update {
	return chat.Update{UserID: userID, UserName: "User", ChatID: userID, Text: text}
}

func callbackUpdate(userID int64, data string) chat.Update {
	return chat.Update{UserID: userID, UserName: "User", ChatID: userID, Callback: data}
}

func TestStart_BootstrapsFirstAdmin(t *testing.T) {
	b := newTestBot(t, 100)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, cmdUpdate(100, "start"))

	u, err := b.store.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	msgs := b.mem.MessagesTo(100)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "first administrator")
	assert.Contains(t, msgs[1].Text, "administrator")
}

func TestStart_RejectsBootstrapOffAllowList(t *testing.T) {
	b := newTestBot(t, 100)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, cmdUpdate(999, "start"))

	_, err := b.store.GetUser(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := b.store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	last := b.mem.Last(999)
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "allow-list")
}

func TestStart_UnknownUserAfterBootstrap(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)

	b.d.HandleUpdate(context.Background(), cmdUpdate(999, "start"))

	last := b.mem.Last(999)
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "not registered")
}

func TestStart_ShowsRoleMenu(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, cmdUpdate(100, "start"))
	admin := b.mem.Last(100)
	require.NotNil(t, admin)
	assert.Contains(t, admin.Text, "administrator")
	require.NotEmpty(t, admin.Keyboard)
	assert.Equal(t, "add_task", admin.Keyboard[0][0].Data)

	b.d.HandleUpdate(ctx, cmdUpdate(200, "start"))
	prog := b.mem.Last(200)
	require.NotNil(t, prog)
	assert.Contains(t, prog.Text, "programmer")
	require.NotEmpty(t, prog.Keyboard)
	assert.Equal(t, "my_tasks", prog.Keyboard[0][0].Data)
}

func TestAdmin_TaskCreationFlow(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, callbackUpdate(100, "add_task"))
	assert.Contains(t, b.mem.Last(100).Text, "title")

	b.d.HandleUpdate(ctx, textUpdate(100, "Fix the login page"))
	assert.Contains(t, b.mem.Last(100).Text, "description")

	b.d.HandleUpdate(ctx, textUpdate(100, "Button does nothing on click"))
	assert.Contains(t, b.mem.Last(100).Text, "priority")

	b.d.HandleUpdate(ctx, callbackUpdate(100, "priority_Red"))
	pick := b.mem.Last(100)
	assert.Contains(t, pick.Text, "assignee")
	// Both registered users are offered as assignees.
	require.Len(t, pick.Keyboard, 2)

	b.d.HandleUpdate(ctx, callbackUpdate(100, "assign_200"))
	assert.Contains(t, b.mem.Last(100).Text, "Task #1 created")

	// The flow ended: its session is gone.
	_, ok := b.d.sessions.Get(100)
	assert.False(t, ok)

	task, err := b.store.GetTask(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Fix the login page", task.Title)
	assert.Equal(t, "Button does nothing on click", task.Description)
	assert.Equal(t, models.PriorityRed, task.Priority)
	assert.Equal(t, models.StatusIncomplete, task.Status)
	assert.False(t, task.Archived)
	assert.Equal(t, int64(200), task.AssignedTo)

	// The assignee got a direct message.
	dm := b.mem.Last(200)
	require.NotNil(t, dm)
	assert.Contains(t, dm.Text, "assigned a new task")
	assert.Contains(t, dm.Text, "Fix the login page")
}

func TestAdmin_InvalidPriorityTagDropped(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, callbackUpdate(100, "add_task"))
	b.d.HandleUpdate(ctx, textUpdate(100, "Title"))
	b.d.HandleUpdate(ctx, textUpdate(100, "Desc"))

	before := len(b.mem.MessagesTo(100))
	b.d.HandleUpdate(ctx, callbackUpdate(100, "priority_Purple"))
	assert.Len(t, b.mem.MessagesTo(100), before, "unknown priority should be dropped silently")

	sess, ok := b.d.sessions.Get(100)
	require.True(t, ok)
	assert.Equal(t, StateAddingPriority, sess.State, "session should not advance")
}

func TestAdmin_SessionsIsolatedBetweenUsers(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 101, "Boris", models.RoleAdmin)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, callbackUpdate(100, "add_task"))
	b.d.HandleUpdate(ctx, callbackUpdate(101, "add_task"))

	b.d.HandleUpdate(ctx, textUpdate(100, "Anna's task"))
	b.d.HandleUpdate(ctx, textUpdate(101, "Boris's task"))

	a, ok := b.d.sessions.Get(100)
	require.True(t, ok)
	bSess, ok := b.d.sessions.Get(101)
	require.True(t, ok)

	assert.Equal(t, "Anna's task", a.Title)
	assert.Equal(t, "Boris's task", bSess.Title)
}

func TestAdmin_AddProgrammerFlow(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, callbackUpdate(100, "add_programmer"))
	assert.Contains(t, b.mem.Last(100).Text, "chat id")

	// Malformed input re-prompts without leaving the flow.
	b.d.HandleUpdate(ctx, textUpdate(100, "just-a-name"))
	assert.Contains(t, b.mem.Last(100).Text, "chat id")
	b.d.HandleUpdate(ctx, textUpdate(100, "notanumber Ivan"))
	assert.Contains(t, b.mem.Last(100).Text, "must be a number")

	sess, ok := b.d.sessions.Get(100)
	require.True(t, ok)
	assert.Equal(t, StateAddingProgrammer, sess.State)

	b.d.HandleUpdate(ctx, textUpdate(100, "200 Ivan Petrov"))
	assert.Contains(t, b.mem.Last(100).Text, "Added programmer: Ivan Petrov (ID: 200)")

	u, err := b.store.GetUser(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", u.Name)
	assert.Equal(t, models.RoleProgrammer, u.Role)

	_, ok = b.d.sessions.Get(100)
	assert.False(t, ok)
}

func TestAdmin_AddProgrammer_DuplicateID(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, callbackUpdate(100, "add_programmer"))
	b.d.HandleUpdate(ctx, textUpdate(100, "200 Ivan"))

	assert.Contains(t, b.mem.Last(100).Text, "Could not add the user")
}

func TestAdmin_FilterTasks(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	createTask(t, b.store, "Red one", models.PriorityRed, 200)
	createTask(t, b.store, "Green one", models.PriorityGreen, 200)

	b.d.HandleUpdate(ctx, callbackUpdate(100, "view_tasks_admin"))
	filters := b.mem.Last(100)
	require.NotEmpty(t, filters.Keyboard)
	assert.Equal(t, "filter_priority_ALL", filters.Keyboard[0][0].Data)

	b.d.HandleUpdate(ctx, callbackUpdate(100, "filter_priority_Red"))
	list := b.mem.Last(100)
	assert.Contains(t, list.Text, "Red one")
	assert.NotContains(t, list.Text, "Green one")
	assert.Contains(t, list.Text, "Assignee: Ivan")

	b.d.HandleUpdate(ctx, callbackUpdate(100, "filter_priority_ALL"))
	all := b.mem.Last(100)
	assert.Contains(t, all.Text, "Red one")
	assert.Contains(t, all.Text, "Green one")

	b.d.HandleUpdate(ctx, callbackUpdate(100, "filter_priority_Blue"))
	assert.Contains(t, b.mem.Last(100).Text, "No tasks match")
}

func TestAdmin_ListUsers(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)

	b.d.HandleUpdate(context.Background(), callbackUpdate(100, "list_users"))
	last := b.mem.Last(100)
	assert.Contains(t, last.Text, "Anna")
	assert.Contains(t, last.Text, "Ivan")
	assert.Contains(t, last.Text, "admin")
	assert.Contains(t, last.Text, "programmer")
}

func TestProgrammer_FilterAndCloseFlow(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	mine := createTask(t, b.store, "Mine", models.PriorityOrange, 200)
	createTask(t, b.store, "Someone else's", models.PriorityOrange, 100)

	b.d.HandleUpdate(ctx, callbackUpdate(200, "my_tasks"))
	assert.Contains(t, b.mem.Last(200).Text, "priority")

	b.d.HandleUpdate(ctx, callbackUpdate(200, "my_filter_ALL"))
	list := b.mem.Last(200)
	assert.Contains(t, list.Text, "Mine")
	assert.NotContains(t, list.Text, "Someone else's")

	// One close button per incomplete task plus the back row.
	require.Len(t, list.Keyboard, 2)
	closeTag := list.Keyboard[0][0].Data
	assert.Equal(t, "close_1", closeTag)

	b.d.HandleUpdate(ctx, callbackUpdate(200, closeTag))
	assert.Contains(t, b.mem.Last(200).Text, "closed and archived")

	task, err := b.store.GetTask(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, task.Status)
	assert.True(t, task.Archived)

	// The archive chat got the record with an undo action.
	rec := b.mem.Last(archiveChatID)
	require.NotNil(t, rec)
	assert.Contains(t, rec.Text, "Task #1 completed")
	assert.Contains(t, rec.Text, "Assignee: Ivan")
	require.NotEmpty(t, rec.Keyboard)
	assert.Equal(t, "unarchive_1", rec.Keyboard[0][0].Data)
}

func TestProgrammer_DeleteAndReplace(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, cmdUpdate(200, "start"))
	first := b.mem.Last(200)
	assert.Empty(t, b.mem.Deleted(), "nothing to delete yet")

	b.d.HandleUpdate(ctx, callbackUpdate(200, "my_tasks"))
	second := b.mem.Last(200)
	assert.Equal(t, []int{first.ID}, b.mem.Deleted())

	b.d.HandleUpdate(ctx, callbackUpdate(200, "back_to_main"))
	assert.Equal(t, []int{first.ID, second.ID}, b.mem.Deleted())
}

func TestProgrammer_EmptyTaskList(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	b.d.HandleUpdate(ctx, callbackUpdate(200, "my_filter_ALL"))
	last := b.mem.Last(200)
	assert.Contains(t, last.Text, "No tasks match")
	require.NotEmpty(t, last.Keyboard)
	assert.Equal(t, "back_to_filter", last.Keyboard[0][0].Data)
}

func TestUnarchive_ReopensAndNotifiesAssignee(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	task := createTask(t, b.store, "Rework me", models.PriorityYellow, 200)
	require.NoError(t, b.store.CloseTask(ctx, task.ID))

	b.d.HandleUpdate(ctx, callbackUpdate(100, "unarchive_1"))
	assert.Contains(t, b.mem.Last(100).Text, "returned from the archive")

	got, err := b.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncomplete, got.Status)
	assert.False(t, got.Archived)

	dm := b.mem.Last(200)
	require.NotNil(t, dm)
	assert.Contains(t, dm.Text, "returned for rework")
}

func TestUnarchive_DeniedForProgrammer(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 200, "Ivan", models.RoleProgrammer)
	ctx := context.Background()

	task := createTask(t, b.store, "Closed", models.PriorityBlue, 200)
	require.NoError(t, b.store.CloseTask(ctx, task.ID))

	b.d.HandleUpdate(ctx, callbackUpdate(200, "unarchive_1"))
	assert.Contains(t, b.mem.Last(200).Text, "permission")

	got, err := b.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived, "task should stay archived")
}

func TestUnarchive_MissingTask(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)

	b.d.HandleUpdate(context.Background(), callbackUpdate(100, "unarchive_42"))
	assert.Contains(t, b.mem.Last(100).Text, "Task not found")
}

func TestText_NoSessionShowsHomeMenu(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)
	ctx := context.Background()

	before, err := b.store.ListTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)

	b.d.HandleUpdate(ctx, textUpdate(100, "hello there"))

	last := b.mem.Last(100)
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "administrator")

	after, err := b.store.ListTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after), "stray text must not mutate data")
}

func TestCallback_UnregisteredUser(t *testing.T) {
	b := newTestBot(t)
	b.addUser(t, 100, "Anna", models.RoleAdmin)

	b.d.HandleUpdate(context.Background(), callbackUpdate(999, "add_task"))
	assert.Contains(t, b.mem.Last(999).Text, "not registered")
}

// createTask persists an incomplete task directly through the store.
func createTask(t *testing.T, s store.Store, title string, p models.Priority, assignee int64) *models.Task {
	t.Helper()
	task := &models.Task{Title: title, Description: "desc", Priority: p, AssignedTo: assignee}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}
