package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sky93/queuectl"
)

func enqueueCmd(o *rootOptions) *cobra.Command {
	var maxRetries int
	cmd := &cobra.Command{
		Use:   "enqueue <command>",
		Short: "Add a shell command to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []queuectl.EnqueueOption
			if cmd.Flags().Changed("max-retries") {
				opts = append(opts, queuectl.WithMaxRetries(maxRetries))
			}
			return o.withSession(cmd, func(s *Session, p printer) error {
				j, err := s.Queue.Enqueue(cmd.Context(), strings.Join(args, " "), opts...)
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(j)
				}
				return p.Line("Enqueued job %s", j.ID)
			})
		},
	}
	cmd.Flags().IntVarP(&maxRetries, "max-retries", "r", 0, "attempts before the job moves to the DLQ (default: config max_retries)")
	return cmd
}

func listCmd(o *rootOptions) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := queuectl.ParseState(state)
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(s *Session, p printer) error {
				jobs, err := s.Queue.ListJobs(cmd.Context(), st)
				if err != nil {
					return err
				}
				return p.Jobs(jobs, "No jobs found.")
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "pending | processing | completed | failed | dead")
	return cmd
}

func getCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				j, err := s.Queue.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.Job(j)
			})
		},
	}
}

func statusCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per state and active workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				st, err := s.Queue.Status(cmd.Context())
				if err != nil {
					return err
				}
				return p.Status(st)
			})
		},
	}
}
