package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/imelnik/taskdesk/internal/models"
	"github.com/imelnik/taskdesk/internal/output"
)

var userRole string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage registered users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <telegram-id> <name>",
	Short: "Register a user without going through the bot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userAddRun(args[0], args[1])
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userRole, "role", "programmer", "Role: admin, programmer")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}

func userAddRun(idArg, name string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram id %q: %w", idArg, err)
	}

	role := models.Role(userRole)
	if !role.Valid() {
		return fmt.Errorf("invalid role %q (want admin or programmer)", userRole)
	}

	if dryRun {
		ui.DryRunMsg("Would add user %s (%d) as %s", name, id, role)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if err := s.AddUser(ctx, &models.User{ID: id, Name: name, Role: role}); err != nil {
		return fmt.Errorf("add user: %w", err)
	}

	ui.Success("Added %s %s (%d)", role, name, id)
	return nil
}

func userListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		ui.Info("No users registered.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Role"})
	for _, u := range users {
		role := string(u.Role)
		if u.Role == models.RoleAdmin {
			role = output.Cyan(role)
		}
		_ = table.Append([]string{
			strconv.FormatInt(u.ID, 10),
			u.Name,
			role,
		})
	}
	_ = table.Render()
	return nil
}
