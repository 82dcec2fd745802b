// Package report renders a finished run for people and for files. It never
// talks to the workspace, it only formats the Result the service produced.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ericzzh/slack-channel-prune/internal/app"
)

// Console prints one line per decision followed by a summary. Kept channels
// only show up when verbose is set.
func Console(w io.Writer, res *app.Result, verbose bool) {
	for _, cr := range res.Channels {
		switch cr.Action {
		case app.ActionSimulated:
			fmt.Fprintf(w, "Dry run: Would archive channel %s (#%s): %s\n", cr.ID, cr.Name, cr.Reason)
		case app.ActionArchived:
			fmt.Fprintf(w, "Archived channel %s (#%s): %s\n", cr.ID, cr.Name, cr.Reason)
		case app.ActionFailed:
			fmt.Fprintf(w, "Error archiving channel %s (#%s): %v\n", cr.ID, cr.Name, cr.Error)
		default:
			if verbose {
				fmt.Fprintf(w, "Keeping channel %s (#%s): %s\n", cr.ID, cr.Name, cr.Reason)
			}
		}
	}

	st := res.Stats
	fmt.Fprintf(w, "Scanned %d channels: %d kept, %d would archive, %d archived, %d failed\n",
		st.Scanned, st.Kept, st.Simulated, st.Archived, st.Failed)
}

// WriteCSV emits one row per scanned channel. A channel's error is folded
// into its reason column so the file stays five columns wide.
func WriteCSV(w io.Writer, res *app.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"channel_id", "channel_name", "verdict", "action", "reason"}
	if err := cw.Write(header); err != nil {
		return errors.Wrapf(err, "failed to write csv header")
	}

	for _, cr := range res.Channels {
		reason := cr.Reason
		if cr.Error != nil {
			reason = fmt.Sprintf("%s: %v", cr.Reason, cr.Error)
		}
		row := []string{cr.ID, cr.Name, string(cr.Verdict), string(cr.Action), reason}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write csv row for channel %s", cr.ID)
		}
	}

	cw.Flush()
	return errors.Wrapf(cw.Error(), "failed to flush csv")
}

// WriteJSON dumps the whole result as indented JSON.
func WriteJSON(w io.Writer, res *app.Result) error {
	raw, err := json.MarshalIndent(res, "", "\t")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal result")
	}
	raw = append(raw, '\n')

	if _, err := w.Write(raw); err != nil {
		return errors.Wrapf(err, "failed to write result")
	}
	return nil
}
