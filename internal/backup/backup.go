// Package backup browses the offline copies of MSBs fetched ahead of time so
// that observing can continue while the database is unreachable.
//
// The tree is laid out as <date>/<HH-MM-SS>/<band>/<instrument>/<query>/ and
// each leaf holds MSB documents (*.xml) with optional summaries (*.info).
package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/msb"
	"github.com/me/msbkit/pkg/sp"
)

// Directory names used by the fetcher, keyed by their display names.
var (
	Bands = map[string]string{
		"Band 1": "band_1",
		"Band 2": "band_2",
		"Band 3": "band_3",
		"Band 4": "band_4",
		"Band 5": "band_5",
	}
	Instruments = map[string]string{
		"SCUBA-2": "scuba-2",
		"HARP":    "harp",
		"RxA3":    "rxa3",
	}
	Queries = map[string]string{
		"JLS":          "jls",
		"PI projects":  "pi",
		"Nothing left": "nl",
	}
)

var (
	validDate = regexp.MustCompile(`^\d\d\d\d-\d\d-\d\d$`)
	validTime = regexp.MustCompile(`^\d\d-\d\d-\d\d$`)
)

// TimeLayout is the layout of time-of-day directory names.
const TimeLayout = "15-04-05"

// Query selects one leaf directory. Band, Instrument and Kind accept either
// the display name or the directory name.
type Query struct {
	Date       string
	Band       string
	Instrument string
	Kind       string
}

// Info is the summary of one backup MSB.
type Info struct {
	CoordsType string `json:"coordstype" yaml:"coordstype"`
	RA         string `json:"ra" yaml:"ra"`
	Dec        string `json:"dec" yaml:"dec"`
	Az         string `json:"az" yaml:"az"`
	Airmass    string `json:"airmass" yaml:"airmass"`
	Type       string `json:"type" yaml:"type"`
	TimeEst    string `json:"timeest" yaml:"timeest"`
	Remaining  string `json:"remaining" yaml:"remaining"`
	MSBID      string `json:"msbid" yaml:"msbid"`
}

// Entry is one MSB document found in a leaf directory.
type Entry struct {
	File string `json:"file" yaml:"file"`
	Path string `json:"path" yaml:"path"`
	Info Info   `json:"info" yaml:"info"`
	// Computed is set when no .info file existed and Info was derived from
	// the MSB itself.
	Computed bool `json:"computed,omitempty" yaml:"computed,omitempty"`
}

// Result is the outcome of a search.
type Result struct {
	Dir     string  `json:"dir" yaml:"dir"`
	Time    string  `json:"time" yaml:"time"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Browser reads a backup tree.
type Browser struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// New returns a browser for the tree rooted at root.
func New(root string, logger *slog.Logger) *Browser {
	return &Browser{root: root, logger: logger.With("component", "backup"), now: time.Now}
}

// Dates returns the date directories in ascending order.
func (b *Browser) Dates() ([]string, error) {
	return b.list(b.root, validDate)
}

// Times returns the time directories of a date in ascending order.
func (b *Browser) Times(date string) ([]string, error) {
	return b.list(filepath.Join(b.root, date), validTime)
}

func (b *Browser) list(dir string, pattern *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && pattern.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// BestTime picks the time equal to now, else the next later one, wrapping
// around to the earliest. times must be sorted.
func BestTime(times []string, now string) string {
	if len(times) == 0 {
		return ""
	}
	i := sort.SearchStrings(times, now)
	if i == len(times) {
		return times[0]
	}
	return times[i]
}

// Search lists the MSBs saved for the time slot nearest the current time.
// An empty Date selects the most recent date.
func (b *Browser) Search(q Query) (Result, error) {
	band, err := dirName(Bands, q.Band)
	if err != nil {
		return Result{}, err
	}
	inst, err := dirName(Instruments, q.Instrument)
	if err != nil {
		return Result{}, err
	}
	kind, err := dirName(Queries, q.Kind)
	if err != nil {
		return Result{}, err
	}

	date := q.Date
	if date == "" {
		dates, err := b.Dates()
		if err != nil {
			return Result{}, err
		}
		if len(dates) == 0 {
			return Result{}, fmt.Errorf("no backup dates under %s", b.root)
		}
		date = dates[len(dates)-1]
	}
	times, err := b.Times(date)
	if err != nil {
		return Result{}, err
	}
	best := BestTime(times, b.now().Format(TimeLayout))
	if best == "" {
		return Result{}, fmt.Errorf("no backup times for %s", date)
	}

	res := Result{Dir: filepath.Join(b.root, date, best, band, inst, kind), Time: best}
	b.logger.Debug("search", "dir", res.Dir)
	files, err := os.ReadDir(res.Dir)
	if os.IsNotExist(err) {
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("list %s: %w", res.Dir, err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".xml") {
			continue
		}
		e := Entry{File: f.Name(), Path: filepath.Join(res.Dir, f.Name())}
		infoPath := strings.TrimSuffix(e.Path, ".xml") + ".info"
		if info, err := ReadInfo(infoPath); err == nil {
			e.Info = info
		} else if os.IsNotExist(err) {
			e.Info, err = Summarize(e.Path)
			if err != nil {
				b.logger.Warn("cannot summarize backup MSB", "file", e.Path, "error", err)
			}
			e.Computed = err == nil
		} else {
			b.logger.Warn("bad info file", "file", infoPath, "error", err)
		}
		res.Entries = append(res.Entries, e)
	}
	return res, nil
}

func dirName(names map[string]string, s string) (string, error) {
	if d, ok := names[s]; ok {
		return d, nil
	}
	for _, d := range names {
		if d == s {
			return d, nil
		}
	}
	valid := make([]string, 0, len(names))
	for k := range names {
		valid = append(valid, k)
	}
	sort.Strings(valid)
	return "", fmt.Errorf("unknown selection %q (valid: %s)", s, strings.Join(valid, ", "))
}

// ReadInfo parses a .info summary file.
func ReadInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return Info{}, fmt.Errorf("parse %s: %w", path, err)
	}
	root := doc.Root()
	if root == nil {
		return Info{}, fmt.Errorf("parse %s: empty document", path)
	}
	return Info{
		CoordsType: sp.Text(root, "coordstype"),
		RA:         sp.Text(root, "ra"),
		Dec:        sp.Text(root, "dec"),
		Az:         sp.Text(root, "az"),
		Airmass:    sp.Text(root, "airmass"),
		Type:       sp.Text(root, "type"),
		TimeEst:    sp.Text(root, "timeest"),
		Remaining:  sp.Text(root, "remaining"),
		MSBID:      sp.Text(root, "msbid"),
	}, nil
}

// Summarize derives the summary of a backup MSB document from its first
// MSB. Azimuth and airmass need an ephemeris and are left empty.
func Summarize(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	doc, err := sp.Parse(data)
	if err != nil {
		return Info{}, fmt.Errorf("parse %s: %w", path, err)
	}

	var m *msb.MSB
	if sp.IsMSB(doc.Root()) {
		m, err = msb.New(doc, doc.Root(), msb.Options{})
	} else {
		var p *msb.Program
		p, err = msb.NewProgram(doc, msb.Options{})
		if err == nil {
			if all := p.MSBs(); len(all) > 0 {
				m = all[0]
			} else {
				err = fmt.Errorf("%s: no MSB", path)
			}
		}
	}
	if err != nil {
		return Info{}, err
	}

	obs, err := m.Unroll()
	if err != nil {
		return Info{}, err
	}
	cs, err := m.Checksum()
	if err != nil {
		return Info{}, err
	}
	r, err := m.Remaining()
	if err != nil {
		return Info{}, err
	}

	first := obs[0]
	return Info{
		CoordsType: string(first.Coords.Kind),
		RA:         first.Coords.C1,
		Dec:        first.Coords.C2,
		Type:       first.Mode.String(),
		TimeEst:    sp.Text(m.Wrapper(), "estimatedDuration"),
		Remaining:  strconv.Itoa(int(r)),
		MSBID:      cs,
	}, nil
}
