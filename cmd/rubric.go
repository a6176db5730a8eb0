package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sparklepop/Code-Project-Review/internal/engine"
	"github.com/sparklepop/Code-Project-Review/internal/output"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
)

var (
	rubricFile   string
	rubricOutput string
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Inspect scoring rubrics",
	Long: `Show the built-in rubrics or a custom rubric file.

A custom rubric is a YAML file with a name, a penalty and ordered
categories of items. Start from 'cpr rubric export' and point
rubric.file in the config (or --rubric-file) at the edited copy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return rubricListRun()
	},
}

var rubricShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show categories, items and point budgets",
	Long:  "Show a rubric. Without [name], shows the configured rubric.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) > 0 {
			name = args[0]
		}
		return rubricShowRun(name)
	},
}

var rubricExportCmd = &cobra.Command{
	Use:   "export [name]",
	Short: "Write a rubric as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) > 0 {
			name = args[0]
		}
		return rubricExportRun(name)
	},
}

func init() {
	rubricShowCmd.Flags().StringVar(&rubricFile, "file", "", "Rubric YAML file")
	rubricExportCmd.Flags().StringVar(&rubricFile, "file", "", "Rubric YAML file")
	rubricExportCmd.Flags().StringVarP(&rubricOutput, "output", "o", "", "Write to file instead of stdout")

	rubricCmd.AddCommand(rubricShowCmd)
	rubricCmd.AddCommand(rubricExportCmd)
	rootCmd.AddCommand(rubricCmd)
}

// resolveRubric picks a rubric by explicit name or file, falling back to
// the configured one.
func resolveRubric(name, file string) (*rubric.Rubric, error) {
	cfg := engine.DefaultConfig()
	if name != "" || file != "" {
		cfg.Rubric, cfg.RubricFile = name, file
	}
	return rubric.Resolve(cfg.Rubric, cfg.RubricFile, cfg.Penalty)
}

func rubricListRun() error {
	active := engine.DefaultConfig().Rubric

	table := ui.Table([]string{"Name", "Categories", "Max", "Penalty", ""})
	for _, name := range rubric.Names() {
		r, err := rubric.ByName(name)
		if err != nil {
			return err
		}
		marker := ""
		if name == active {
			marker = output.Green("active")
		}
		_ = table.Append([]string{
			name,
			strconv.Itoa(len(r.Categories)),
			formatPoints(r.Max()),
			formatPoints(r.Penalty),
			marker,
		})
	}
	_ = table.Render()
	return nil
}

func rubricShowRun(name string) error {
	r, err := resolveRubric(name, rubricFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  max %s, non-working penalty %s\n\n",
		output.Cyan(r.Name), formatPoints(r.Max()), formatPoints(r.Penalty))

	table := ui.Table([]string{"Category", "Item", "Max", "Rule"})
	for _, c := range r.Categories {
		_ = table.Append([]string{c.Key, "", formatPoints(c.Max()), ""})
		for _, it := range c.Items {
			_ = table.Append([]string{"", it.Key, formatPoints(it.Max), it.RuleKey()})
		}
	}
	_ = table.Render()
	return nil
}

func rubricExportRun(name string) error {
	r, err := resolveRubric(name, rubricFile)
	if err != nil {
		return err
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}

	if rubricOutput == "" {
		_, err := ui.Out.Write(data)
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would write rubric %s to %s", r.Name, rubricOutput)
		return nil
	}
	if err := os.WriteFile(rubricOutput, data, 0o644); err != nil {
		return fmt.Errorf("write rubric: %w", err)
	}
	ui.Success("Exported rubric %s to %s", r.Name, rubricOutput)
	return nil
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
