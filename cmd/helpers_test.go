package cmd

import (
	"bytes"
	"io"
	"os"
	"testing"
)

// captureStdout runs fn and returns what it printed to stdout
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	defer func() { os.Stdout = old }()
	fn()
	w.Close()
	return <-done
}

// useHome points the config at a fresh directory and clears global flags
func useHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DAILYGATE_HOME", home)
	t.Setenv("DAILYGATE_USERNAME", "alice")
	t.Setenv("DAILYGATE_CREDENTIAL_BACKEND", "file")
	t.Setenv("DAILYGATE_TIMEZONE", "UTC")

	saved := [...]string{configPath, statePath, logPath, logLevel}
	configPath, statePath, logPath, logLevel = "", "", "", ""
	t.Cleanup(func() {
		configPath, statePath, logPath, logLevel = saved[0], saved[1], saved[2], saved[3]
	})
	return home
}

// execute runs the root command with args and captures stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var err error
	out := captureStdout(t, func() {
		rootCmd.SetArgs(args)
		err = rootCmd.Execute()
	})
	return out, err
}
