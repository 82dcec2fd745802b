package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericzzh/slack-channel-prune/internal/app"
	"github.com/ericzzh/slack-channel-prune/internal/report"
)

func fixture() *app.Result {
	return &app.Result{
		Channels: []app.ChannelResult{
			{
				ID:      "C1",
				Name:    "general",
				Verdict: app.VerdictKeep,
				Action:  app.ActionNone,
				Reason:  "no rule matched",
			},
			{
				ID:      "C2",
				Name:    "proj-x",
				Verdict: app.VerdictArchiveByDomain,
				Action:  app.ActionSimulated,
				Reason:  "all member domains in acme.com",
			},
			{
				ID:      "C3",
				Name:    "old-team",
				Verdict: app.VerdictArchiveByInactivity,
				Action:  app.ActionArchived,
				Reason:  "no activity for 90 days",
			},
			{
				ID:      "C4",
				Name:    "locked",
				Verdict: app.VerdictArchiveByDomain,
				Action:  app.ActionFailed,
				Reason:  "all member domains in acme.com",
				Error:   errors.New("restricted_action"),
			},
		},
		Stats: app.Stats{Scanned: 4, Kept: 1, Simulated: 1, Archived: 1, Failed: 1},
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer

	report.Console(&buf, fixture(), false)

	want := "Dry run: Would archive channel C2 (#proj-x): all member domains in acme.com\n" +
		"Archived channel C3 (#old-team): no activity for 90 days\n" +
		"Error archiving channel C4 (#locked): restricted_action\n" +
		"Scanned 4 channels: 1 kept, 1 would archive, 1 archived, 1 failed\n"
	assert.Equal(t, want, buf.String())
}

func TestConsoleVerbose(t *testing.T) {
	var buf bytes.Buffer

	report.Console(&buf, fixture(), true)

	assert.Contains(t, buf.String(), "Keeping channel C1 (#general): no rule matched\n")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, report.WriteCSV(&buf, fixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, []string{"channel_id", "channel_name", "verdict", "action", "reason"}, records[0])
	assert.Equal(t, []string{"C1", "general", "keep", "none", "no rule matched"}, records[1])
	assert.Equal(t, []string{"C2", "proj-x", "archive_by_domain", "simulated", "all member domains in acme.com"}, records[2])
	assert.Equal(t, []string{"C3", "old-team", "archive_by_inactivity", "archived", "no activity for 90 days"}, records[3])
	assert.Equal(t, []string{"C4", "locked", "archive_by_domain", "failed", "all member domains in acme.com: restricted_action"}, records[4])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, report.WriteJSON(&buf, fixture()))

	raw := buf.Bytes()
	require.True(t, bytes.HasSuffix(raw, []byte("\n")))

	var out struct {
		Channels []struct {
			ID      string
			Verdict string
			Action  string
			Reason  string
			Error   string
		}
		Stats app.Stats
	}
	require.NoError(t, json.Unmarshal(raw, &out))

	require.Len(t, out.Channels, 4)
	assert.Equal(t, "C2", out.Channels[1].ID)
	assert.Equal(t, "archive_by_domain", out.Channels[1].Verdict)
	assert.Equal(t, "simulated", out.Channels[1].Action)
	assert.Empty(t, out.Channels[0].Error)
	assert.Equal(t, "restricted_action", out.Channels[3].Error)
	assert.Equal(t, app.Stats{Scanned: 4, Kept: 1, Simulated: 1, Archived: 1, Failed: 1}, out.Stats)
}
