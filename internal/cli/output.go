package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sky93/queuectl"
)

// printer renders results as tables, or as JSON with --json.
type printer struct {
	w    io.Writer
	json bool
}

func (p printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) Jobs(jobs []queuectl.JobRecord, empty string) error {
	if p.json {
		if jobs == nil {
			jobs = []queuectl.JobRecord{}
		}
		return p.JSON(jobs)
	}
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(p.w, empty)
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tATTEMPTS\tNEXT RETRY\tCOMMAND")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			j.ID, j.State, j.Attempts, j.MaxRetries, formatRetry(j.NextRetryAt), j.Command)
	}
	return tw.Flush()
}

func (p printer) Job(j *queuectl.JobRecord) error {
	if p.json {
		return p.JSON(j)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", j.ID)
	fmt.Fprintf(tw, "command:\t%s\n", j.Command)
	fmt.Fprintf(tw, "state:\t%s\n", j.State)
	fmt.Fprintf(tw, "attempts:\t%d/%d\n", j.Attempts, j.MaxRetries)
	fmt.Fprintf(tw, "created_at:\t%s\n", j.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "updated_at:\t%s\n", j.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "next_retry_at:\t%s\n", formatRetry(j.NextRetryAt))
	if err := tw.Flush(); err != nil {
		return err
	}
	if j.Output != "" {
		fmt.Fprintf(p.w, "output:\n%s", j.Output)
		if !strings.HasSuffix(j.Output, "\n") {
			fmt.Fprintln(p.w)
		}
	}
	return nil
}

func (p printer) Status(st *queuectl.QueueStatus) error {
	if p.json {
		return p.JSON(st)
	}
	if st.StoreWarning != "" {
		fmt.Fprintf(p.w, "warning: %s\n", st.StoreWarning)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, s := range queuectl.States {
		fmt.Fprintf(tw, "%s:\t%d\n", s, st.Counts[s])
	}
	fmt.Fprintf(tw, "total:\t%d\n", st.Total)
	fmt.Fprintf(tw, "workers:\t%d\n", st.ActiveWorkers)
	return tw.Flush()
}

func (p printer) Settings(s queuectl.Settings) error {
	if p.json {
		return p.JSON(s)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, key := range queuectl.SettingKeys {
		v, _ := s.Get(key)
		fmt.Fprintf(tw, "%s\t%s\n", key, v)
	}
	return tw.Flush()
}

func (p printer) Line(format string, args ...any) error {
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func formatRetry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
