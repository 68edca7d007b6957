package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kiwidesk/kiwi/internal/db"
	"github.com/kiwidesk/kiwi/internal/grade"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func newGradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade management commands",
	}

	cmd.AddCommand(newGradeListCmd())
	cmd.AddCommand(newGradeImportCmd())
	cmd.AddCommand(newGradeClearCmd())
	return cmd
}

func newGradeListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored grades, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGradeList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	return cmd
}

func runGradeList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	grades, err := grade.List(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(grades) == 0 {
		fmt.Fprintln(out, "No grades found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBJECT\tDATE\tVALUE")
	for _, g := range grades {
		date := g.Date
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%g\n", g.ID, truncate(g.Subject, 40), date, g.Value)
	}
	w.Flush()
	return nil
}

func newGradeImportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace stored grades with the contents of a YAML file",
		Long: `Replaces every stored grade with the grades listed in a YAML file.
The file holds either a top-level list or a "grades" key:

  grades:
    - subject: Math
      date: 12/01
      value: 15.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGradeImport(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	return cmd
}

func runGradeImport(cmd *cobra.Command, configPath, file string) error {
	items, err := readGradeFile(file)
	if err != nil {
		return err
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var n int
	err = db.Scope(commandContext(cmd), gormDB, func(tx *gorm.DB) error {
		var err error
		n, err = grade.Replace(tx, items)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d grade(s) imported successfully\n", n)
	return nil
}

func readGradeFile(path string) ([]grade.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grades: %w", err)
	}

	var doc struct {
		Grades []grade.Input `yaml:"grades"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var list []grade.Input
		if listErr := yaml.Unmarshal(data, &list); listErr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return list, nil
	}
	return doc.Grades, nil
}

func newGradeClearCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored grade",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete grades without --yes")
			}
			return runGradeClear(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func runGradeClear(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var n int64
	err = db.Scope(commandContext(cmd), gormDB, func(tx *gorm.DB) error {
		var err error
		n, err = grade.Clear(tx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d grade(s) deleted\n", n)
	return nil
}
