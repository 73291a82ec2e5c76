package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/marcus/dailygate/internal/config"
	"github.com/marcus/dailygate/internal/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show the effective configuration",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		fmt.Println(output.KeyValue("Config file", resolvedConfigPath(), 11))
		if err := output.JSON(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			output.Warning("%v", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolvedConfigPath()
		if path == "" {
			err := errors.New("cannot determine config path")
			output.Error("%v", err)
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			output.Error("%s already exists (use --force to overwrite)", path)
			return fmt.Errorf("config exists: %s", path)
		}

		f := &config.File{}
		f.Username, _ = cmd.Flags().GetString("username")
		f.Timezone, _ = cmd.Flags().GetString("timezone")
		f.CredentialBackend, _ = cmd.Flags().GetString("credential-backend")
		if f.Username == "" {
			output.Error("--username is required")
			return errors.New("username is required")
		}

		if err := config.WriteFile(path, f); err != nil {
			output.Error("write config: %v", err)
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			output.Error("config written but does not load: %v", err)
			return err
		}
		if err := cfg.Validate(); err != nil {
			output.Warning("%v", err)
		}
		output.Success("Wrote %s", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().String("username", "", "LeetCode username whose submissions unlock the gate")
	configInitCmd.Flags().String("timezone", "", "IANA timezone defining \"today\" (default: system local)")
	configInitCmd.Flags().String("credential-backend", "", "keyring or file")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
