package cli

import (
	"github.com/spf13/cobra"
)

func configCmd(o *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persisted queue settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				set, err := s.Queue.Settings(cmd.Context())
				if err != nil {
					return err
				}
				return p.Settings(set)
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				set, err := s.Queue.Settings(cmd.Context())
				if err != nil {
					return err
				}
				v, err := set.Get(args[0])
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(map[string]string{args[0]: v})
				}
				return p.Line("%s", v)
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting (max_retries, backoff_base, worker_count)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				set, err := s.Queue.SetSetting(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(set)
				}
				v, _ := set.Get(args[0])
				return p.Line("%s = %s", args[0], v)
			})
		},
	}

	configCmd.AddCommand(showCmd, getCmd, setCmd)
	return configCmd
}
