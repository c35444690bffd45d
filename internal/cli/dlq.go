package cli

import (
	"github.com/spf13/cobra"
)

func dlqCmd(o *rootOptions) *cobra.Command {
	dlqCmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage the dead letter queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List dead jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				jobs, err := s.Queue.ListDLQ(cmd.Context())
				if err != nil {
					return err
				}
				return p.Jobs(jobs, "Dead letter queue is empty.")
			})
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Move a dead job back to pending with a fresh retry budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				j, err := s.Queue.RequeueDLQ(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(j)
				}
				return p.Line("Job %s moved from DLQ to pending.", j.ID)
			})
		},
	}

	dlqCmd.AddCommand(listCmd, retryCmd)
	return dlqCmd
}
