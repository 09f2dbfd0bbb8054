// Package space verifies engine storage consumption as seen by the
// operating system: df output of the tmpfs mounts before and after pools
// are created and written to.
package space

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/ui"
)

// DFCommand lists the engine mounts.
const DFCommand = "df -h | grep daos"

var whitespace = regexp.MustCompile(`\s+`)

// Mount is one tmpfs line of df output.
type Mount struct {
	Size   string
	Used   string
	Avail  string
	UsePct string
	Path   string
}

// ParseDF returns the tmpfs mounts in df -h lines.
func ParseDF(lines []string) []Mount {
	var mounts []Mount
	for _, line := range lines {
		info := whitespace.Split(line, -1)
		if len(info) > 5 && info[0] == "tmpfs" {
			mounts = append(mounts, Mount{
				Size:   info[1],
				Used:   info[2],
				Avail:  info[3],
				UsePct: info[4],
				Path:   info[5],
			})
		}
	}
	return mounts
}

// Collect reads the engine mounts on hosts and assigns each host's mount to
// its ranks. Every host must report a mount.
func Collect(ctx context.Context, runner remote.Runner, hosts nodeset.NodeSet, ranks map[string][]int, log logger.Logger) (map[int]Mount, error) {
	if log == nil {
		log = logger.Noop()
	}
	result, err := runner.Run(ctx, hosts, DFCommand, remote.WithStderr(true))
	if err != nil {
		return nil, err
	}
	if !result.Passed() {
		return nil, errors.New(errors.ErrVerify,
			"Error collecting system level daos mount information",
			fmt.Sprintf("Check that the engines are running on %s", result.FailedHosts()))
	}

	data := make(map[int]Mount)
	var missing []string
	for _, h := range result.Hosts {
		mounts := ParseDF(h.Stdout)
		if len(mounts) == 0 {
			missing = append(missing, h.Host)
			continue
		}
		for _, rank := range ranks[h.Host] {
			data[rank] = mounts[0]
		}
	}
	if len(missing) > 0 || len(data) == 0 {
		return nil, errors.New(errors.ErrVerify,
			fmt.Sprintf("Error obtaining system pool data for all hosts: %v", formatData(data)),
			fmt.Sprintf("No tmpfs daos mount found on %s", nodeset.New(missing...)))
	}
	log.Debug("Collected %d rank mounts from %s", len(data), hosts)
	return data, nil
}

func formatData(data map[int]Mount) string {
	ranks := sortedRanks(data)
	out := "{"
	for i, r := range ranks {
		if i > 0 {
			out += ", "
		}
		m := data[r]
		out += fmt.Sprintf("%d: %s %s/%s", r, m.Path, m.Avail, m.Size)
	}
	return out + "}"
}

func sortedRanks(data map[int]Mount) []int {
	ranks := make([]int, 0, len(data))
	for r := range data {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	return ranks
}

// Snapshot is the mount data of every rank at one point of a scenario.
type Snapshot struct {
	Label string
	Data  map[int]Mount
}

// Method compares the latest snapshot of a rank against the previous one.
type Method int

const (
	// AllAvailable expects the current size to equal the current avail.
	AllAvailable Method = iota
	// Equal expects the available space to be unchanged.
	Equal
	// Reduced expects the available space to have shrunk.
	Reduced
)

// Symbol is the short form used in reports.
func (m Method) Symbol() string {
	switch m {
	case AllAvailable:
		return "cS=cA"
	case Reduced:
		return "pA>cA"
	default:
		return "pA=cA"
	}
}

func (m Method) needsPrevious() bool { return m != AllAvailable }

// Check evaluates m for rank on the last two snapshots.
func (m Method) Check(rank int, snapshots []Snapshot) (bool, error) {
	if len(snapshots) == 0 {
		return false, errors.New(errors.ErrVerify, "No pool size data to compare", "")
	}
	current, ok := snapshots[len(snapshots)-1].Data[rank]
	if !ok {
		return false, errors.New(errors.ErrVerify, fmt.Sprintf("No data for rank %d", rank), "")
	}
	if m == AllAvailable {
		return compareSizes(current.Size, current.Avail, func(a, b uint64) bool { return a == b })
	}
	if len(snapshots) < 2 {
		return false, errors.New(errors.ErrVerify,
			fmt.Sprintf("Compare %s for rank %d requires a previous snapshot", m.Symbol(), rank), "")
	}
	previous, ok := snapshots[len(snapshots)-2].Data[rank]
	if !ok {
		return false, errors.New(errors.ErrVerify, fmt.Sprintf("No previous data for rank %d", rank), "")
	}
	if m == Reduced {
		return compareSizes(previous.Avail, current.Avail, func(a, b uint64) bool { return a > b })
	}
	return compareSizes(previous.Avail, current.Avail, func(a, b uint64) bool { return a == b })
}

func compareSizes(a, b string, cmp func(a, b uint64) bool) (bool, error) {
	x, err := humanize.ParseBytes(a)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrVerify, fmt.Sprintf("Invalid size '%s'", a), "")
	}
	y, err := humanize.ParseBytes(b)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrVerify, fmt.Sprintf("Invalid size '%s'", b), "")
	}
	return cmp(x, y), nil
}

// Row is one rank of a comparison report.
type Row struct {
	Rank     int
	Path     string
	Previous *Mount
	Current  Mount
	Method   Method
	Passed   bool
}

// Report is the outcome of comparing the latest snapshot.
type Report struct {
	Label  string
	Rows   []Row
	Passed bool
}

// Columns are the report table headers.
var Columns = []ui.TableColumn{
	{Title: "Rank"},
	{Title: "Mount"},
	{Title: "Previous (Size/Avail)"},
	{Title: "Current (Size/Avail)"},
	{Title: "Compare"},
	{Title: "Status"},
}

// Table renders the rows as table cells.
func (r Report) Table() [][]string {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		previous := "None / None"
		if row.Previous != nil {
			previous = row.Previous.Size + " / " + row.Previous.Avail
		}
		rows = append(rows, []string{
			strconv.Itoa(row.Rank),
			row.Path,
			previous,
			row.Current.Size + " / " + row.Current.Avail,
			row.Method.Symbol(),
			strconv.FormatBool(row.Passed),
		})
	}
	return rows
}

// Err is a VERIFY error when any rank failed its comparison.
func (r Report) Err() error {
	if r.Passed {
		return nil
	}
	return errors.New(errors.ErrVerify,
		fmt.Sprintf("Error detected in system pools size for %s", r.Label),
		"Compare the df output with 'dmg storage query usage'")
}

// CompareSnapshots applies methods[rank] to every rank of the latest
// snapshot.
func CompareSnapshots(snapshots []Snapshot, methods []Method) (Report, error) {
	if len(snapshots) == 0 {
		return Report{}, errors.New(errors.ErrVerify, "No pool size data to compare", "")
	}
	last := snapshots[len(snapshots)-1]
	report := Report{Label: last.Label, Passed: true}
	for _, rank := range sortedRanks(last.Data) {
		if rank < 0 || rank >= len(methods) {
			return report, errors.New(errors.ErrVerify,
				fmt.Sprintf("No compare method for rank %d", rank),
				fmt.Sprintf("Provide a method for each of the %d ranks", len(last.Data)))
		}
		method := methods[rank]
		passed, err := method.Check(rank, snapshots)
		if err != nil {
			return report, err
		}
		row := Row{
			Rank:    rank,
			Path:    last.Data[rank].Path,
			Current: last.Data[rank],
			Method:  method,
			Passed:  passed,
		}
		if len(snapshots) > 1 {
			if prev, ok := snapshots[len(snapshots)-2].Data[rank]; ok {
				row.Previous = &prev
			}
		}
		report.Rows = append(report.Rows, row)
		report.Passed = report.Passed && passed
	}
	return report, nil
}

// Render draws the report as a table.
func (r Report) Render() string {
	return ui.RenderSimpleTable(Columns, r.Table())
}

// Log writes the report heading at info level and the table at debug.
func (r Report) Log(log logger.Logger) {
	log.Info("Verifying system reported pool size for %s", r.Label)
	for _, line := range strings.Split(strings.TrimRight(r.Render(), "\n"), "\n") {
		if line != "" {
			log.Debug("  %s", line)
		}
	}
}
