package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericzzh/slack-channel-prune/internal/app"
)

func discardLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("app", "test")
}

// newOverlayCommand builds a throwaway command with its own flag set so the
// tests never touch the real RootCmd state.
func newOverlayCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().StringSlice("email-domains", nil, "")
	cmd.Flags().Int("days", 0, "")
	cmd.Flags().Bool("live", false, "")
	cmd.Flags().Bool("join-channels", false, "")
	cmd.Flags().StringSlice("exclude", nil, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func TestResolveToken(t *testing.T) {
	t.Run("positional argument wins", func(t *testing.T) {
		t.Setenv(tokenEnvVar, "xoxb-from-env")

		token, err := resolveToken([]string{"xoxb-from-arg"}, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, "xoxb-from-arg", token)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv(tokenEnvVar, "xoxb-from-env")

		token, err := resolveToken(nil, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, "xoxb-from-env", token)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		t.Setenv(tokenEnvVar, "")

		_, err := resolveToken(nil, discardLogger())

		require.Error(t, err)
		assert.Contains(t, err.Error(), tokenEnvVar)
	})
}

func TestOverlay(t *testing.T) {
	file := &app.PolicyFile{
		EmailDomains: []string{"acme.com"},
		Days:         intp(60),
		Live:         boolp(true),
		Exclude:      []string{"general"},
	}

	t.Run("file fills unset flags", func(t *testing.T) {
		cmd := newOverlayCommand(t)

		in := overlay(app.PolicyInput{}, file, cmd)

		assert.Equal(t, []string{"acme.com"}, in.Domains)
		assert.Equal(t, 60, in.Days)
		assert.True(t, in.Live)
		assert.False(t, in.JoinChannels, "a key absent from the file leaves the flag default")
		assert.Equal(t, []string{"general"}, in.Exclude)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		cmd := newOverlayCommand(t, "--days", "30", "--live=false")

		in := overlay(app.PolicyInput{Days: 30}, file, cmd)

		assert.Equal(t, 30, in.Days)
		assert.False(t, in.Live)
		assert.Equal(t, []string{"acme.com"}, in.Domains, "untouched flags still come from the file")
	})
}

func TestBuildPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("email_domains:\n  - acme.com\ndays: 45\n"), 0o600))

	flagPolicy = path
	t.Cleanup(func() { flagPolicy = "" })

	pol, err := buildPolicy(newOverlayCommand(t))

	require.NoError(t, err)
	assert.Equal(t, []string{"acme.com"}, pol.Domains)
	assert.Equal(t, 45*24*time.Hour, pol.Threshold)
	assert.False(t, pol.Live)
}

func TestWriteFile(t *testing.T) {
	t.Run("writes and closes the report", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.csv")

		require.NoError(t, writeFile(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "channel_id,channel_name\n")
			return err
		}))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "channel_id,channel_name\n", string(raw))
	})

	t.Run("reports creation failure", func(t *testing.T) {
		err := writeFile(filepath.Join(t.TempDir(), "missing", "report.csv"), func(io.Writer) error {
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create")
	})

	t.Run("reports render failure", func(t *testing.T) {
		renderErr := errors.New("render failed")

		err := writeFile(filepath.Join(t.TempDir(), "report.json"), func(io.Writer) error {
			return renderErr
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, renderErr)
	})

	t.Run("reports close failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.json")

		// closing the file under writeFile makes its own deferred close fail
		err := writeFile(path, func(w io.Writer) error {
			return w.(io.Closer).Close()
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to close")
	})
}
