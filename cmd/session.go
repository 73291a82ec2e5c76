package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/dailygate/internal/achievement"
	"github.com/marcus/dailygate/internal/audit"
	"github.com/marcus/dailygate/internal/config"
	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/gate"
	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/input"
	"github.com/marcus/dailygate/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Short:   "Manage the stored LeetCode session cookie",
	GroupID: "session",
}

const cookieHelpMarkdown = `# Session cookie

The gate reads your LeetCode submissions with your browser session.

1. Run ` + "`dailygate open login`" + ` and sign in.
2. Open DevTools, then Application (Storage in Firefox), then Cookies for leetcode.com.
3. Copy the value of **LEETCODE_SESSION**.
4. Run ` + "`dailygate session set`" + ` and paste it.`

type sessionEnv struct {
	cfg     *config.Config
	client  *achievement.Client
	manager *gate.SessionManager
}

// openSession wires the credential store, client and manager from config
func openSession() (*sessionEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	creds, err := credential.Open(cfg)
	if err != nil {
		return nil, err
	}
	client := achievement.New(cfg, creds)
	auditLog := audit.New(cfg.LogPath, audit.WithLocation(cfg.Location))
	return &sessionEnv{
		cfg:     cfg,
		client:  client,
		manager: gate.NewSessionManager(creds, client, auditLog),
	}, nil
}

// readToken prompts for the cookie on a terminal and reads one line otherwise
func readToken(in *os.File) (string, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return input.FirstLine(in)
	}

	var token string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Update session").
				Description("Paste the value of the LEETCODE_SESSION cookie.\nRun 'dailygate session help-cookie' for where to find it."),
			huh.NewInput().
				Title("LEETCODE_SESSION").
				EchoMode(huh.EchoModePassword).
				Value(&token),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return token, nil
}

var sessionSetCmd = &cobra.Command{
	Use:   "set [cookie]",
	Short: "Store a new session cookie and validate it",
	Long: `Store a new session cookie. Without an argument the cookie is read from a
masked prompt, or from stdin when it is not a terminal. The argument may
also be - to read stdin or @path to read a file.

The cookie is checked against LeetCode once. A rejected cookie is removed
again; a cookie that cannot be checked right now is kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openSession()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		sm := env.manager

		var token string
		if len(args) > 0 {
			if token, err = input.ResolveValue(args[0], os.Stdin); err != nil {
				output.Error("read cookie: %v", err)
				return err
			}
		} else if token, err = readToken(os.Stdin); err != nil {
			output.Error("read cookie: %v", err)
			return err
		}

		if noValidate, _ := cmd.Flags().GetBool("no-validate"); noValidate {
			token = strings.TrimSpace(token)
			if token == "" {
				output.Error("%s", gate.StatusEmptyCredential)
				return errors.New("empty cookie")
			}
			if err := sm.Set(token); err != nil {
				output.Error("save cookie: %v", err)
				return err
			}
			output.Success("Session cookie saved (%s)", credential.Mask(token))
			return nil
		}

		return reportValidation(sm.Validate(cmd.Context(), token))
	},
}

func reportValidation(v gate.Validation) error {
	switch v.Outcome {
	case gate.ValidationOK:
		output.Success("%s", v.Message)
		return nil
	case gate.ValidationUncertain:
		output.Warning("%s", v.Message)
		if v.Err != nil {
			fmt.Println(v.Err)
		}
		return nil
	default:
		output.Error("%s", v.Message)
		if v.Err != nil {
			return v.Err
		}
		return errors.New(v.Outcome.String())
	}
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored session cookie",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openSession()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if err := env.manager.Clear(); err != nil {
			output.Error("clear cookie: %v", err)
			return err
		}
		output.Success("Session cookie removed")
		return nil
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session cookie is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openSession()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		const w = 9
		fmt.Println(output.KeyValue("Backend", env.cfg.CredentialBackend, w))
		token, err := env.manager.Get()
		switch {
		case errors.Is(err, credential.ErrNotFound):
			fmt.Println(output.KeyValue("Cookie", "not set", w))
		case err != nil:
			output.Error("read cookie: %v", err)
			return err
		default:
			fmt.Println(output.KeyValue("Cookie", credential.Mask(token), w))
		}
		return nil
	},
}

var sessionValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the stored session cookie against LeetCode",
	Long: `Check the stored cookie with one request. A cookie LeetCode rejects is
removed, exactly as the gate does while polling.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openSession()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if _, err := env.manager.Get(); err != nil {
			output.Error("no session cookie stored; run 'dailygate session set'")
			return err
		}

		ev, err := env.client.FetchTodayCompletion(cmd.Context())
		switch gateerr.KindOf(err) {
		case gateerr.KindNone:
			output.Success("Session cookie is valid")
			if ev != nil {
				fmt.Printf("Solved today: %s (%s)\n", ev.Title, ev.ID)
			}
			return nil
		case gateerr.KindCredentialInvalid:
			env.manager.Clear()
			output.Error("%s", gate.StatusSessionExpired)
			return err
		default:
			output.Warning("could not validate right now: %v", err)
			return nil
		}
	},
}

var sessionHelpCmd = &cobra.Command{
	Use:   "help-cookie",
	Short: "Explain how to copy the session cookie from a browser",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rendered, err := output.RenderMarkdown(cookieHelpMarkdown)
		if err != nil {
			fmt.Println(cookieHelpMarkdown)
			return nil
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	sessionSetCmd.Flags().Bool("no-validate", false, "store the cookie without checking it")

	sessionCmd.AddCommand(sessionSetCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionValidateCmd)
	sessionCmd.AddCommand(sessionHelpCmd)
	rootCmd.AddCommand(sessionCmd)
}
