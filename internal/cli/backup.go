package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/me/msbkit/internal/backup"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Browse the backup-MSB tree",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Root of the backup tree (or backup_dir in config, MSBKIT_BACKUP_DIR env)")

	browser := func() (*backup.Browser, error) {
		root := dir
		if root == "" {
			root = cfg.BackupDir
		}
		if root == "" {
			return nil, fmt.Errorf("no backup directory: use --dir or set backup_dir")
		}
		return backup.New(root, logger), nil
	}

	dates := &cobra.Command{
		Use:   "dates",
		Short: "List the dates with backup MSBs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := browser()
			if err != nil {
				return err
			}
			list, err := b.Dates()
			if err != nil {
				return err
			}
			return render(cmd, list, func(w io.Writer) {
				for _, d := range list {
					fmt.Fprintln(w, d)
				}
			})
		},
	}

	var q backup.Query
	search := &cobra.Command{
		Use:   "search",
		Short: "Show the backup MSBs closest to the current time of day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := browser()
			if err != nil {
				return err
			}
			res, err := b.Search(q)
			if err != nil {
				return err
			}
			return render(cmd, res, func(w io.Writer) {
				if res.Time == "" || len(res.Entries) == 0 {
					fmt.Fprintln(w, "No backup MSBs found.")
					return
				}
				fmt.Fprintf(w, "%s (%s)\n\n", res.Dir, res.Time)
				fmt.Fprintf(w, "%-30s  %-12s  %-12s  %-7s  %-8s  %-9s  %s\n", "FILE", "RA", "DEC", "AIRMASS", "TIME", "REMAINING", "TYPE")
				fmt.Fprintf(w, "%-30s  %-12s  %-12s  %-7s  %-8s  %-9s  %s\n", "----", "--", "---", "-------", "----", "---------", "----")
				for _, e := range res.Entries {
					fmt.Fprintf(w, "%-30s  %-12s  %-12s  %-7s  %-8s  %-9s  %s\n",
						truncate(strings.TrimSuffix(e.File, ".xml"), 30), e.Info.RA, e.Info.Dec, e.Info.Airmass,
						e.Info.TimeEst, e.Info.Remaining, e.Info.Type)
				}
			})
		},
	}
	search.Flags().StringVar(&q.Date, "date", "", "Date directory (default: latest)")
	search.Flags().StringVar(&q.Band, "band", "Band 1", "Weather band")
	search.Flags().StringVar(&q.Instrument, "instrument", "SCUBA-2", "Instrument")
	search.Flags().StringVar(&q.Kind, "query", "PI projects", "Query kind (JLS, PI projects, Nothing left)")

	cmd.AddCommand(dates, search)
	return cmd
}
