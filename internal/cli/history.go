package cli

import (
	"fmt"
	"io"

	"github.com/me/msbkit/pkg/model"
	"github.com/spf13/cobra"
)

type historyPage struct {
	Total        int                `json:"total" yaml:"total"`
	Observations *int               `json:"observations,omitempty" yaml:"observations,omitempty"`
	Events       []*model.DoneEvent `json:"events" yaml:"events"`
}

func newHistoryCmd() *cobra.Command {
	var (
		checksum string
		project  string
		status   string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the MSB-done history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := model.DefaultListOptions()
			opts.Checksum = checksum
			opts.ProjectID = project
			opts.Limit = limit
			opts.Offset = offset
			if status != "" {
				s, err := model.ParseEventStatus(status)
				if err != nil {
					return err
				}
				opts.Status = s
			}

			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			events, total, err := st.ListEvents(ctx, opts)
			if err != nil {
				return err
			}
			page := historyPage{Total: total, Events: events}
			if checksum != "" {
				n, err := st.ObservationCount(ctx, checksum)
				if err != nil {
					return err
				}
				page.Observations = &n
			}

			return render(cmd, page, func(w io.Writer) {
				if len(events) == 0 {
					fmt.Fprintln(w, "No history found.")
					return
				}
				fmt.Fprintf(w, "%-20s  %-32s  %-10s  %-10s  %-4s  %s\n", "DATE", "CHECKSUM", "PROJECT", "STATUS", "REM", "TITLE")
				fmt.Fprintf(w, "%-20s  %-32s  %-10s  %-10s  %-4s  %s\n", "----", "--------", "-------", "------", "---", "-----")
				for _, ev := range events {
					fmt.Fprintf(w, "%-20s  %-32s  %-10s  %-10s  %-4d  %s\n",
						ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Checksum, ev.ProjectID, ev.Status, ev.Remaining, ev.Title)
				}
				fmt.Fprintf(w, "\nShowing %d of %d entries\n", len(events), total)
				if page.Observations != nil {
					fmt.Fprintf(w, "Net observations of %s: %d\n", checksum, *page.Observations)
				}
			})
		},
	}

	cmd.Flags().StringVar(&checksum, "checksum", "", "Filter by MSB checksum")
	cmd.Flags().StringVar(&project, "project", "", "Filter by project id")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (observed, unobserved, removed, ...)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	return cmd
}
