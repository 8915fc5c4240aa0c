package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/me/msbkit/internal/store"
	"github.com/me/msbkit/pkg/model"
	"github.com/me/msbkit/pkg/msb"
	"github.com/spf13/cobra"
)

type transition int

const (
	transObserve transition = iota
	transUnobserve
	transRemove
	transUnremove
	transSuspend
	transResume
)

var transitionStatus = map[transition]model.EventStatus{
	transObserve:   model.EventObserved,
	transUnobserve: model.EventUnobserved,
	transRemove:    model.EventRemoved,
	transUnremove:  model.EventUnremoved,
	transSuspend:   model.EventSuspended,
	transResume:    model.EventResumed,
}

func transitionFor(status model.EventStatus) (transition, bool) {
	for t, s := range transitionStatus {
		if s == status {
			return t, true
		}
	}
	return 0, false
}

func (t transition) apply(p *msb.Program, checksum, label string) (*msb.MSB, error) {
	switch t {
	case transObserve:
		return p.Observe(checksum)
	case transUnobserve:
		return p.Unobserve(checksum)
	case transRemove:
		return p.Remove(checksum)
	case transUnremove:
		return p.Unremove(checksum)
	case transSuspend:
		return p.Suspend(checksum, label)
	case transResume:
		return p.Resume(checksum)
	}
	return nil, fmt.Errorf("unknown transition %d", t)
}

type transitionFlags struct {
	output    string
	comment   string
	msbtid    string
	noHistory bool
}

func (f *transitionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the updated program here instead of in place")
	cmd.Flags().StringVar(&f.comment, "comment", "", "Comment stored with the history entry")
	cmd.Flags().StringVar(&f.msbtid, "msbtid", "", "MSB transaction id (default: a new one)")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record the change in the MSB-done history")
}

func newTransitionCmd(use, short string, t transition) *cobra.Command {
	var flags transitionFlags
	cmd := &cobra.Command{
		Use:   use + " <program.xml> <checksum>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, flags.noHistory, func(st store.Store) error {
				return runTransition(cmd, st, t, args[0], args[1], "", flags)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSuspendCmd() *cobra.Command {
	var flags transitionFlags
	cmd := &cobra.Command{
		Use:   "suspend <program.xml> <checksum> <label>",
		Short: "Suspend an MSB at an observation label",
		Long:  "Suspend an MSB so that the next execution starts at the observation with\nthe given label (for example obs1_3, as printed by unroll).",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, flags.noHistory, func(st store.Store) error {
				return runTransition(cmd, st, transSuspend, args[0], args[1], args[2], flags)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

type transitionResult struct {
	Checksum    string           `json:"checksum" yaml:"checksum"`
	NewChecksum string           `json:"new_checksum,omitempty" yaml:"new_checksum,omitempty"`
	Event       *model.DoneEvent `json:"event" yaml:"event"`
}

// runTransition applies t to the MSB with the given checksum, records the
// change in st unless st is nil and then replaces the program file. A failed
// history write leaves the file untouched.
func runTransition(cmd *cobra.Command, st store.Store, t transition, path, checksum, label string, flags transitionFlags) error {
	p, err := loadProgram(path)
	if err != nil {
		return err
	}

	m, err := t.apply(p, checksum, label)
	if err != nil {
		return err
	}
	r, err := m.Remaining()
	if err != nil {
		return err
	}
	// Leaving an OR group changes the checksum; it is stored before saving.
	newChecksum, err := m.Checksum()
	if err != nil {
		return err
	}
	staged, err := stageProgram(p, path, flags.output)
	if err != nil {
		return err
	}

	ev := &model.DoneEvent{
		MSBTID:    flags.msbtid,
		Checksum:  checksum,
		ProjectID: m.ProjectID(),
		Title:     m.Title(),
		Status:    transitionStatus[t],
		Remaining: int(r),
		Label:     label,
		Comment:   flags.comment,
	}
	if newChecksum != checksum {
		ev.NewChecksum = newChecksum
	}
	if ev.MSBTID == "" {
		ev.MSBTID = model.NewTransactionID()
	}
	if st != nil {
		if err := st.RecordEvent(cmd.Context(), ev); err != nil {
			staged.discard()
			return fmt.Errorf("record %s: %w", ev.Status, err)
		}
		logger.Info("history recorded", "id", ev.ID, "checksum", ev.Checksum, "status", ev.Status)
	}
	if err := staged.commit(); err != nil {
		return err
	}

	res := transitionResult{Checksum: checksum, NewChecksum: ev.NewChecksum, Event: ev}
	return render(cmd, res, func(w io.Writer) {
		fmt.Fprintf(w, "MSB %q %s (remaining %d)\n", ev.Title, ev.Status, ev.Remaining)
		if res.NewChecksum != "" {
			fmt.Fprintf(w, "Checksum changed: %s -> %s\n", checksum, res.NewChecksum)
		}
	})
}

// withHistory runs fn with the opened history store, or with nil when the
// history is skipped.
func withHistory(cmd *cobra.Command, skip bool, fn func(store.Store) error) error {
	if skip {
		return fn(nil)
	}
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func openStore(ctx context.Context) (store.Store, error) {
	path, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return st, nil
}

func newUndoCmd() *cobra.Command {
	var flags transitionFlags
	cmd := &cobra.Command{
		Use:   "undo <program.xml> <event-id>",
		Short: "Apply the inverse of a recorded history entry",
		Long: "Undo looks up a history entry and applies the transition that reverses it\n" +
			"(observe/unobserve, remove/unremove, suspend/resume) to the same MSB.\n" +
			"The reversal is recorded under the entry's transaction id.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, false, func(st store.Store) error {
				ev, err := st.GetEvent(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				inverse := ev.Status.Inverse()
				if inverse == model.EventSuspended {
					return fmt.Errorf("cannot undo %s of %s: the suspend label is not recorded", ev.Status, ev.Checksum)
				}
				t, ok := transitionFor(inverse)
				if !ok {
					return &model.InvalidStatusError{Status: string(ev.Status)}
				}
				if flags.msbtid == "" {
					flags.msbtid = ev.MSBTID
				}
				if flags.comment == "" {
					flags.comment = "undo " + ev.ID
				}
				if flags.noHistory {
					st = nil
				}
				checksum := ev.Checksum
				if ev.NewChecksum != "" {
					checksum = ev.NewChecksum
				}
				return runTransition(cmd, st, t, args[0], checksum, "", flags)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}
