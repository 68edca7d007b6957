package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/kiwidesk/kiwi/internal/db"
	"github.com/kiwidesk/kiwi/internal/models"
	"github.com/kiwidesk/kiwi/internal/task"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task management commands",
	}

	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskDoneCmd())
	cmd.AddCommand(newTaskRmCmd())
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		configPath string
		opts       task.ListOpts
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List top-level tasks",
		Long:  "Lists top-level tasks with optional filters. Subtasks are indented under their parent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskList(cmd, configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (todo, doing, done, archived)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "filter by priority (low, normal, high)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "case-insensitive title search")
	cmd.Flags().StringVar(&opts.Sort, "sort", task.DefaultSort, "sort key, '-' prefix for descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", task.DefaultLimit, "maximum number of tasks")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of tasks to skip")
	return cmd
}

func runTaskList(cmd *cobra.Command, configPath string, opts task.ListOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	tasks, err := task.List(gormDB, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE")
	for _, t := range tasks {
		writeTaskRow(w, &t, "")
		for _, sub := range t.Subtasks {
			writeTaskRow(w, &sub, "  ")
		}
	}
	w.Flush()
	return nil
}

func writeTaskRow(w *tabwriter.Writer, t *models.Task, indent string) {
	fmt.Fprintf(w, "%s%d\t%s%s\t%s\t%s\t%s\n",
		indent, t.ID, indent, truncate(t.Title, 40), t.Status, t.Priority, formatDue(t.DueDate))
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.Local().Format("2006-01-02 15:04")
}

func newTaskAddCmd() *cobra.Command {
	var (
		configPath  string
		description string
		priority    string
		due         string
		tags        string
		parentID    int64
		recurrence  string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := task.CreateOpts{
				Title:      args[0],
				Priority:   priority,
				Recurrence: recurrence,
			}
			if description != "" {
				opts.Description = &description
			}
			if tags != "" {
				opts.Tags = &tags
			}
			if parentID != 0 {
				opts.ParentID = &parentID
			}
			if due != "" {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				opts.DueDate = &d
			}
			return runTaskAdd(cmd, configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (low, normal, high)")
	cmd.Flags().StringVar(&due, "due", "", "due date (2006-01-02, 2006-01-02 15:04 or RFC 3339)")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "parent task ID")
	cmd.Flags().StringVar(&recurrence, "recurrence", "", "repeat rule (daily, weekly, monthly)")
	return cmd
}

// dueLayouts are tried in order; layouts without a zone use local time.
var dueLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseDue(s string) (time.Time, error) {
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due date %q (want 2006-01-02, 2006-01-02 15:04 or RFC 3339)", s)
}

func runTaskAdd(cmd *cobra.Command, configPath string, opts task.CreateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var t *models.Task
	err = db.Scope(commandContext(cmd), gormDB, func(tx *gorm.DB) error {
		var err error
		t, err = task.Create(tx, opts)
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created task %d\n", t.ID)
	if t.ParentID != nil {
		fmt.Fprintf(out, "Parent: %d\n", *t.ParentID)
	}
	return nil
}

func newTaskShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return runTaskShow(cmd, configPath, id)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	return cmd
}

func runTaskShow(cmd *cobra.Command, configPath string, id int64) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	t, err := task.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %d\n", t.ID)
	fmt.Fprintf(out, "Title:       %s\n", t.Title)
	fmt.Fprintf(out, "Status:      %s\n", t.Status)
	fmt.Fprintf(out, "Priority:    %s\n", t.Priority)
	if t.DueDate != nil {
		fmt.Fprintf(out, "Due:         %s\n", formatDue(t.DueDate))
	}
	if t.Recurrence != nil {
		fmt.Fprintf(out, "Repeats:     %s\n", *t.Recurrence)
		if next := task.NextDue(t); next != nil {
			fmt.Fprintf(out, "Next due:    %s\n", formatDue(next))
		}
	}
	if t.Tags != nil {
		fmt.Fprintf(out, "Tags:        %s\n", *t.Tags)
	}
	if t.ParentID != nil {
		fmt.Fprintf(out, "Parent:      %d\n", *t.ParentID)
	}
	fmt.Fprintf(out, "Created:     %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated:     %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if t.CompletedAt != nil {
		fmt.Fprintf(out, "Completed:   %s\n", t.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if t.Description != nil {
		fmt.Fprintf(out, "\nDescription:\n%s\n", *t.Description)
	}
	if len(t.Subtasks) > 0 {
		fmt.Fprintln(out, "\nSubtasks:")
		for _, sub := range t.Subtasks {
			fmt.Fprintf(out, "  [%s] %d %s\n", sub.Status, sub.ID, sub.Title)
		}
	}
	return nil
}

func newTaskDoneCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return runTaskDone(cmd, configPath, id)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	return cmd
}

func runTaskDone(cmd *cobra.Command, configPath string, id int64) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	done := string(models.StatusDone)
	var t *models.Task
	err = db.Scope(commandContext(cmd), gormDB, func(tx *gorm.DB) error {
		var err error
		t, err = task.Update(tx, id, task.UpdateOpts{Status: &done})
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Task %d marked done\n", t.ID)
	return nil
}

func newTaskRmCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks and their subtasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := parseTaskID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return runTaskRm(cmd, configPath, ids)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	return cmd
}

func runTaskRm(cmd *cobra.Command, configPath string, ids []int64) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var removed int
	err = db.Scope(commandContext(cmd), gormDB, func(tx *gorm.DB) error {
		var err error
		removed, err = task.BulkDelete(tx, ids)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d task(s)\n", removed, len(ids))
	return nil
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
