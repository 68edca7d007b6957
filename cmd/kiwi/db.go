package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kiwidesk/kiwi/internal/config"
	"github.com/kiwidesk/kiwi/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Kiwi database",
		Long:  "Creates the database if needed (MySQL) and migrates the schema.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()

	if cfg.Database.Driver == "mysql" {
		if err := createMySQLDatabase(out, cfg.Database); err != nil {
			return err
		}
	}
	if err := migrate(out, cfg.Database); err != nil {
		return err
	}

	fmt.Fprintln(out, "Database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the Kiwi database",
		Long:  "Deletes every task, grade and stored token, then recreates an empty schema.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, yes bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()
	target := storeName(cfg.Database)

	if !yes {
		if !interactive(cmd.InOrStdin()) {
			return errors.New("refusing to prompt on a non-interactive input; pass --yes to confirm")
		}
		if !confirmReset(cmd, target) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	switch cfg.Database.Driver {
	case "mysql":
		adminDB, err := db.ConnectAdmin(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropping database %q...\n", cfg.Database.Name)
		if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		if err := createMySQLDatabase(out, cfg.Database); err != nil {
			return err
		}
	default:
		if cfg.Database.Path != ":memory:" {
			fmt.Fprintf(out, "Removing %s...\n", cfg.Database.Path)
			if err := os.Remove(cfg.Database.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", cfg.Database.Path, err)
			}
		}
	}
	if err := migrate(out, cfg.Database); err != nil {
		return err
	}

	fmt.Fprintln(out, "Database reset successfully.")
	return nil
}

func createMySQLDatabase(out io.Writer, cfg config.DatabaseConfig) error {
	fmt.Fprintf(out, "Connecting to MySQL at %s:%d...\n", cfg.Host, cfg.Port)
	adminDB, err := db.ConnectAdmin(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Creating database %q...\n", cfg.Name)
	return db.CreateDatabase(adminDB, cfg.Name)
}

func migrate(out io.Writer, cfg config.DatabaseConfig) error {
	gormDB, err := db.Open(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Running migrations...")
	return db.AutoMigrate(gormDB)
}

func storeName(cfg config.DatabaseConfig) string {
	if cfg.Driver == "mysql" {
		return cfg.Name
	}
	return cfg.Path
}

// interactive reports whether in can answer a prompt. Readers other than
// files (set through cmd.SetIn) always can.
func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %q.\n", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
