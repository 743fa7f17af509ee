package app

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpgate/rpgate/internal/audit"
)

var errAuditDisabled = errors.New("audit trail is disabled, set audit.enabled")

func init() { //nolint: gochecknoinits
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Number of events to print")

	rootCmd.AddCommand(auditCmd)
}

var (
	auditLimit int

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Print the latest sign in and sign out events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := readConfig(); err != nil {
				return err
			}

			rec, err := audit.Open(cfg.Audit)
			if err != nil {
				return err
			}

			trail, ok := rec.(*audit.Trail)
			if !ok {
				return errAuditDisabled
			}

			events, err := trail.Recent(cmd.Context(), auditLimit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TIME\tTYPE\tSUBJECT\tKIND\tREASON\tREMOTE")

			for _, e := range events {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.Type, e.Subject, e.Kind, e.Reason, e.RemoteAddr)
			}

			return w.Flush()
		},
	}
)
