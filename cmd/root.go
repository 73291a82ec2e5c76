package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marcus/dailygate/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	version string

	configPath string
	statePath  string
	logPath    string
	logLevel   string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "dailygate",
	Short: "Lock the terminal until today's LeetCode problem is solved",
	Long: `dailygate - a daily access gate.

Run without a subcommand it checks whether the gate was already released
today. If not, it shows a full-screen lock that polls LeetCode for an
accepted submission and unlocks once one from today appears. The emergency
exit always works and is written to the gate log.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(os.Stderr)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		runGate(cmd.Context(), newGateRunner())
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// nameWithAliases returns "name, alias1, alias2" if aliases exist, else just "name"
func nameWithAliases(cmd *cobra.Command) string {
	if len(cmd.Aliases) > 0 {
		return cmd.Name() + ", " + strings.Join(cmd.Aliases, ", ")
	}
	return cmd.Name()
}

func init() {
	cobra.AddTemplateFunc("nameWithAliases", nameWithAliases)
	cobra.AddTemplateFunc("add", func(a, b int) int { return a + b })

	// Custom usage template that shows aliases inline
	usageTemplate := `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}

Use "{{.CommandPath}} [command] --help" for more information about a command.
`
	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.AddGroup(
		&cobra.Group{ID: "gate", Title: "Gate Commands:"},
		&cobra.Group{ID: "session", Title: "Session Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	rootCmd.PersistentFlags().AddFlagSet(globalFlags())
}

// globalFlags are shared by every command
func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "config file (default ~/.config/dailygate/config.json)")
	fs.StringVar(&statePath, "state", "", "unlock state file (overrides config)")
	fs.StringVar(&logPath, "log", "", "gate log file (overrides config)")
	fs.StringVar(&logLevel, "log-level", "", "diagnostic log level: debug|info|warn|error (env DAILYGATE_LOG_LEVEL)")
	return fs
}

// loadConfig resolves the configuration and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)
	return cfg, nil
}

// fallbackConfig is used when the real config cannot be loaded: it still
// knows where the state and gate log live so the gate can fail open.
func fallbackConfig() *config.Config {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	if configPath != "" && os.Getenv("DAILYGATE_HOME") == "" {
		dir = filepath.Dir(configPath)
	}
	cfg := config.Defaults(dir)
	applyFlagOverrides(cfg)
	return cfg
}

func applyFlagOverrides(cfg *config.Config) {
	if statePath != "" {
		cfg.StatePath = statePath
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	p, err := config.DefaultPath()
	if err != nil {
		return ""
	}
	return p
}
