package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cpr"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage cpr configuration.

Running bare 'cpr config' is the same as 'cpr config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# cpr configuration
# See: cpr config show (for effective values and sources)

# State directory for the database and clones (default: ~/.config/cpr)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/cpr/cpr.db)
# db_path: {{ .DBPath }}

rubric:
  # Built-in rubric: standard (115 points) or advanced
  name: "{{ .Rubric }}"
  # Custom rubric YAML; overrides name when set (see: cpr rubric export)
  file: "{{ .RubricFile }}"

analysis:
  # Points removed from the grand total of a non-working submission
  penalty: {{ .Penalty }}
  # Source files analyzed per review, chosen by size
  max_files: {{ .MaxFiles }}
  # Fetch plus analysis budget per review
  timeout: {{ .Timeout }}
  # Extractors run in parallel; 0 means one per CPU
  concurrency: {{ .Concurrency }}

fetch:
  # git (shallow clone, needs git on PATH) or github (REST API, no clone)
  method: "{{ .FetchMethod }}"
  # Commits fetched by a git clone; commit history feeds commit quality
  clone_depth: {{ .CloneDepth }}

github:
  # Token for private repositories and higher API rate limits
  token: ""

anthropic:
  # Optional; enables --narrate to rewrite overall comments with Claude
  api_key: ""
  model: "{{ .AnthropicModel }}"
  narrate: {{ .Narrate }}

serve:
  port: {{ .Port }}
  # Background analysis workers and queue length
  workers: {{ .Workers }}
  queue_size: {{ .QueueSize }}

cleanup:
  # Clone directories older than this are removed by cpr serve and cpr cleanup
  max_age: {{ .CleanupMaxAge }}
`

type configTemplateData struct {
	StateDir       string
	DBPath         string
	Rubric         string
	RubricFile     string
	Penalty        float64
	MaxFiles       int
	Timeout        string
	Concurrency    int
	FetchMethod    string
	CloneDepth     int
	AnthropicModel string
	Narrate        bool
	Port           int
	Workers        int
	QueueSize      int
	CleanupMaxAge  string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Secrets are never copied into the file; they stay in env or are
	// filled in by hand.
	data := configTemplateData{
		StateDir:       viper.GetString("state_dir"),
		DBPath:         viper.GetString("db_path"),
		Rubric:         viper.GetString("rubric.name"),
		RubricFile:     viper.GetString("rubric.file"),
		Penalty:        viper.GetFloat64("analysis.penalty"),
		MaxFiles:       viper.GetInt("analysis.max_files"),
		Timeout:        viper.GetDuration("analysis.timeout").String(),
		Concurrency:    viper.GetInt("analysis.concurrency"),
		FetchMethod:    viper.GetString("fetch.method"),
		CloneDepth:     viper.GetInt("fetch.clone_depth"),
		AnthropicModel: viper.GetString("anthropic.model"),
		Narrate:        viper.GetBool("anthropic.narrate"),
		Port:           viper.GetInt("serve.port"),
		Workers:        viper.GetInt("serve.workers"),
		QueueSize:      viper.GetInt("serve.queue_size"),
		CleanupMaxAge:  viper.GetDuration("cleanup.max_age").String(),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeys lists the keys shown by config show, in display order.
var configKeys = []string{
	"state_dir",
	"db_path",
	"rubric.name",
	"rubric.file",
	"analysis.penalty",
	"analysis.max_files",
	"analysis.timeout",
	"analysis.concurrency",
	"fetch.method",
	"fetch.clone_depth",
	"github.token",
	"anthropic.api_key",
	"anthropic.model",
	"anthropic.narrate",
	"serve.port",
	"serve.workers",
	"serve.queue_size",
	"cleanup.max_age",
}

// secretKeys are masked by config show.
var secretKeys = map[string]bool{
	"github.token":      true,
	"anthropic.api_key": true,
}

// envVarFor returns the environment variable viper reads for key.
func envVarFor(key string) string {
	return "CPR_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)

	for _, key := range configKeys {
		source := detectSource(key, envVarFor(key), fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", key, displayValue(key), source)
	}

	return nil
}

// displayValue returns the effective value of key, masking secrets.
func displayValue(key string) any {
	val := viper.Get(key)
	if !secretKeys[key] {
		return val
	}
	s := viper.GetString(key)
	switch {
	case s == "":
		return "(unset)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'cpr config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
