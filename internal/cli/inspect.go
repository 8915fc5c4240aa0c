package cli

import (
	"fmt"
	"io"

	"github.com/me/msbkit/pkg/msb"
	"github.com/spf13/cobra"
)

type msbRow struct {
	Checksum     string      `json:"checksum" yaml:"checksum"`
	Title        string      `json:"title" yaml:"title"`
	Remaining    int         `json:"remaining" yaml:"remaining"`
	State        msb.State   `json:"state" yaml:"state"`
	Observations int         `json:"observations" yaml:"observations"`
	Suspend      string      `json:"suspend,omitempty" yaml:"suspend,omitempty"`
	Target       string      `json:"target,omitempty" yaml:"target,omitempty"`
	Schedule     []msb.Field `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Weather      []msb.Field `json:"weather,omitempty" yaml:"weather,omitempty"`
}

func describe(m *msb.MSB) (msbRow, error) {
	cs, err := m.Checksum()
	if err != nil {
		return msbRow{}, err
	}
	r, err := m.Remaining()
	if err != nil {
		return msbRow{}, err
	}
	sums, err := m.Summary()
	if err != nil {
		return msbRow{}, err
	}
	cons, err := m.SchedulingConstraints()
	if err != nil {
		return msbRow{}, err
	}
	row := msbRow{
		Checksum:     cs,
		Title:        m.Title(),
		Remaining:    int(r),
		State:        r.State(),
		Observations: len(sums),
		Suspend:      m.SuspendLabel(),
		Schedule:     cons.Schedule,
		Weather:      cons.Weather,
	}
	if t := m.OverrideTarget(); t != nil {
		row.Target = t.Name()
	}
	return row, nil
}

func newSummaryCmd() *cobra.Command {
	var checksum string
	cmd := &cobra.Command{
		Use:   "summary <program.xml>",
		Short: "List the MSBs of a science program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			msbs, err := selectMSBs(p, checksum)
			if err != nil {
				return err
			}

			rows := make([]msbRow, 0, len(msbs))
			for _, m := range msbs {
				row, err := describe(m)
				if err != nil {
					return fmt.Errorf("MSB %q: %w", m.Title(), err)
				}
				rows = append(rows, row)
			}

			return render(cmd, rows, func(w io.Writer) {
				fmt.Fprintf(w, "Project: %s\n\n", p.ProjectID())
				if len(rows) == 0 {
					fmt.Fprintln(w, "No MSBs found.")
					return
				}
				fmt.Fprintf(w, "%-32s  %-30s  %-9s  %-9s  %-4s  %s\n", "CHECKSUM", "TITLE", "REMAINING", "STATE", "OBS", "SUSPEND")
				fmt.Fprintf(w, "%-32s  %-30s  %-9s  %-9s  %-4s  %s\n", "--------", "-----", "---------", "-----", "---", "-------")
				for _, r := range rows {
					title := r.Title
					if r.Target != "" {
						title += " [" + r.Target + "]"
					}
					fmt.Fprintf(w, "%-32s  %-30s  %-9d  %-9s  %-4d  %s\n",
						r.Checksum, truncate(title, 30), r.Remaining, r.State, r.Observations, r.Suspend)
				}
			})
		},
	}
	cmd.Flags().StringVar(&checksum, "msb", "", "Only the MSB with this checksum")
	return cmd
}

type unrolled struct {
	Checksum     string            `json:"checksum" yaml:"checksum"`
	Title        string            `json:"title" yaml:"title"`
	Observations []msb.Observation `json:"observations" yaml:"observations"`
}

func newUnrollCmd() *cobra.Command {
	var checksum string
	cmd := &cobra.Command{
		Use:   "unroll <program.xml>",
		Short: "Expand MSBs into their ordered observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			msbs, err := selectMSBs(p, checksum)
			if err != nil {
				return err
			}

			out := make([]unrolled, 0, len(msbs))
			for _, m := range msbs {
				obs, err := m.Unroll()
				if err != nil {
					return fmt.Errorf("MSB %q: %w", m.Title(), err)
				}
				cs, err := m.Checksum()
				if err != nil {
					return err
				}
				out = append(out, unrolled{Checksum: cs, Title: m.Title(), Observations: obs})
			}

			return render(cmd, out, func(w io.Writer) {
				for i, u := range out {
					if i > 0 {
						fmt.Fprintln(w)
					}
					fmt.Fprintf(w, "%s  %s\n", u.Checksum, u.Title)
					fmt.Fprintf(w, "  %-10s  %-16s  %-20s  %s\n", "LABEL", "MODE", "TARGET", "")
					for _, o := range u.Observations {
						mark := ""
						if o.Suspended {
							mark = "suspended"
						}
						fmt.Fprintf(w, "  %-10s  %-16s  %-20s  %s\n", o.Label, o.Mode, truncate(o.Coords.String(), 20), mark)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&checksum, "msb", "", "Only the MSB with this checksum")
	return cmd
}

func newChecksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <program.xml>",
		Short: "Print the checksum of every MSB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			sums := map[string]string{}
			var order []string
			for _, m := range p.MSBs() {
				cs, err := m.Checksum()
				if err != nil {
					return fmt.Errorf("MSB %q: %w", m.Title(), err)
				}
				sums[cs] = m.Title()
				order = append(order, cs)
			}
			return render(cmd, sums, func(w io.Writer) {
				for _, cs := range order {
					fmt.Fprintf(w, "%s  %s\n", cs, sums[cs])
				}
			})
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
