package cmd

import (
	"fmt"
	"io"

	"github.com/marcus/dailygate/internal/config"
	"github.com/marcus/dailygate/internal/output"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

func init() {
	// xdg-open and friends print to the terminal the lock screen owns.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// openURL launches url in the default browser
func openURL(url string) error {
	return browser.OpenURL(url)
}

// pageURL maps a page name to its configured URL
func pageURL(cfg *config.Config, page string) (string, error) {
	switch page {
	case "", "daily":
		return cfg.DailyURL, nil
	case "problems", "problemset":
		return cfg.ProblemsURL, nil
	case "login":
		return cfg.LoginURL, nil
	}
	return "", fmt.Errorf("unknown page %q (use daily, problems or login)", page)
}

var openCmd = &cobra.Command{
	Use:       "open [daily|problems|login]",
	Short:     "Open a LeetCode page in the browser",
	GroupID:   "gate",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"daily", "problems", "login"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		page := ""
		if len(args) > 0 {
			page = args[0]
		}
		url, err := pageURL(cfg, page)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
			fmt.Println(url)
			return nil
		}
		if err := openURL(url); err != nil {
			output.Warning("could not launch a browser: %v", err)
			fmt.Println(url)
			return nil
		}
		output.Success("Opened %s", url)
		return nil
	},
}

func init() {
	openCmd.Flags().Bool("print", false, "print the URL instead of opening it")
	rootCmd.AddCommand(openCmd)
}
