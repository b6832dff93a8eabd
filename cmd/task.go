package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/imelnik/taskdesk/internal/models"
	"github.com/imelnik/taskdesk/internal/output"
	"github.com/imelnik/taskdesk/internal/store"
)

var (
	taskPriority string
	taskAssignee int64
	taskArchived bool
	taskAll      bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and manage tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a task and move it to the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskCloseRun(args[0])
	},
}

var taskReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Return an archived task to the active list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskReopenRun(args[0])
	},
}

func init() {
	taskListCmd.Flags().StringVar(&taskPriority, "priority", "", "Filter by priority: Red, Orange, Yellow, Green, Blue")
	taskListCmd.Flags().Int64Var(&taskAssignee, "assignee", 0, "Filter by assignee telegram id")
	taskListCmd.Flags().BoolVar(&taskArchived, "archived", false, "Show only archived tasks")
	taskListCmd.Flags().BoolVar(&taskAll, "all", false, "Show active and archived tasks")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCloseCmd)
	taskCmd.AddCommand(taskReopenCmd)
	rootCmd.AddCommand(taskCmd)
}

func taskListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.TaskFilter{
		Priority: models.Priority(taskPriority),
	}
	if taskAssignee != 0 {
		filter.AssignedTo = store.Int64(taskAssignee)
	}
	if !taskAll {
		filter.Archived = store.Bool(taskArchived)
	}

	tasks, err := s.ListTasks(ctx, filter)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		ui.Info("No tasks found.")
		return nil
	}

	// Resolve assignee names once per user
	names := make(map[int64]string)

	table := ui.Table([]string{"ID", "Title", "Priority", "Status", "Assignee", "Archived"})
	for _, t := range tasks {
		name := names[t.AssignedTo]
		if name == "" {
			if u, err := s.GetUser(ctx, t.AssignedTo); err == nil {
				name = u.Name
				names[t.AssignedTo] = name
			}
		}

		archived := ""
		if t.Archived {
			archived = "yes"
		}

		_ = table.Append([]string{
			fmt.Sprintf("#%d", t.ID),
			t.Title,
			output.PriorityColor(string(t.Priority)),
			output.StatusColor(string(t.Status)),
			name,
			archived,
		})
	}
	_ = table.Render()
	return nil
}

func taskCloseRun(idArg string) error {
	id, err := parseTaskID(idArg)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would close task #%d", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if err := s.CloseTask(ctx, id); err != nil {
		return fmt.Errorf("close task #%d: %w", id, err)
	}

	ui.Success("Task #%d closed and archived", id)
	return nil
}

func taskReopenRun(idArg string) error {
	id, err := parseTaskID(idArg)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would reopen task #%d", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if err := s.ReopenTask(ctx, id); err != nil {
		return fmt.Errorf("reopen task #%d: %w", id, err)
	}

	ui.Success("Task #%d returned to the active list", id)
	return nil
}

// parseTaskID accepts both "12" and "#12".
func parseTaskID(arg string) (int64, error) {
	if len(arg) > 0 && arg[0] == '#' {
		arg = arg[1:]
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q: %w", arg, err)
	}
	return id, nil
}
