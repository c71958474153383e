package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/quantfoundry/universe-data/internal/model"
	"github.com/quantfoundry/universe-data/internal/snapshot"
)

// seriesPoint is one snapshot's view of the inspected instrument. A nil
// record means the instrument was not in the universe at that timestamp;
// its fields print as null.
type seriesPoint struct {
	ts  string
	rec *model.UniverseRecord
}

func runInspect(opts options, logger *slog.Logger) int {
	if opts.savedDir == "" || opts.instrumentID == "" {
		fmt.Fprintln(os.Stderr, "inspect requires --saved_dir and --instrument_id")
		return exitUsage
	}
	if opts.mode != "print" && opts.mode != "graph" {
		fmt.Fprintf(os.Stderr, "unknown mode %q (want print or graph)\n", opts.mode)
		return exitUsage
	}

	fields := splitFields(opts.fields)
	if len(fields) == 0 {
		fmt.Fprintln(os.Stderr, "inspect requires at least one field")
		return exitUsage
	}
	for _, f := range fields {
		if !model.KnownColumn(f) {
			fmt.Fprintf(os.Stderr, "unknown field %q\n", f)
			return exitUsage
		}
	}
	if opts.mode == "graph" && len(fields) != 1 {
		fmt.Fprintln(os.Stderr, "graph mode takes exactly one field")
		return exitUsage
	}

	var start, end time.Time
	if opts.startDate != "" {
		t, err := model.ParseDate(opts.startDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --start_date: %v\n", err)
			return exitUsage
		}
		start = t
	}
	if opts.endDate != "" {
		t, err := model.ParseDate(opts.endDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --end_date: %v\n", err)
			return exitUsage
		}
		end = t
	}

	store, err := snapshot.New(opts.savedDir, snapshot.DefaultCacheCapacity, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err, "dir", opts.savedDir)
		return exitError
	}

	timestamps, err := store.List(0)
	if err != nil {
		logger.Error("failed to list snapshots", "error", err)
		return exitError
	}

	// List returns newest first; the series reads oldest first.
	var selected []string
	for i := len(timestamps) - 1; i >= 0; i-- {
		if tsInRange(timestamps[i], start, end) {
			selected = append(selected, timestamps[i])
		}
	}
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "no snapshots found in range")
		return exitError
	}

	series := make([]seriesPoint, 0, len(selected))
	for _, ts := range selected {
		snap, err := store.Load(snapshot.At(ts))
		if err != nil {
			logger.Error("failed to load snapshot", "timestamp", ts, "error", err)
			return exitError
		}
		rec, _ := snap.Record(opts.instrumentID)
		series = append(series, seriesPoint{ts: ts, rec: rec})
	}

	switch opts.mode {
	case "print":
		printSeries(os.Stdout, opts.instrumentID, fields, series)
	case "graph":
		graphSeries(os.Stdout, opts.instrumentID, fields[0], series)
	}
	return exitOK
}

func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// tsInRange bounds a snapshot timestamp by inclusive civil dates. Zero
// bounds are open.
func tsInRange(ts string, start, end time.Time) bool {
	t, err := model.ParseTimestamp(ts)
	if err != nil {
		return false
	}
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && !t.Before(end.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// printSeries writes one row per snapshot with the requested columns.
func printSeries(w io.Writer, symbol string, fields []string, series []seriesPoint) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprint(tw, "timestamp\tsymbol")
	for _, f := range fields {
		fmt.Fprintf(tw, "\t%s", f)
	}
	fmt.Fprintln(tw)

	for _, p := range series {
		fmt.Fprintf(tw, "%s\t%s", p.ts, symbol)
		for _, f := range fields {
			fmt.Fprintf(tw, "\t%s", fieldText(p.rec, f))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

// fieldText renders one column value for the table. Absent instruments and
// invalid indicator values render as null.
func fieldText(rec *model.UniverseRecord, field string) string {
	if rec == nil {
		return "null"
	}
	v, ok := rec.Field(field)
	if !ok {
		return "null"
	}
	switch x := v.(type) {
	case *float64:
		if x == nil {
			return "null"
		}
		return strconv.FormatFloat(*x, 'f', 4, 64)
	case float64:
		return strconv.FormatFloat(x, 'f', 4, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case string:
		if x == "" {
			return "null"
		}
		return x
	default:
		return fmt.Sprint(v)
	}
}

// graphRamp orders characters by visual weight for the sparkline.
const graphRamp = ".:-=+*#%@"

// graphSeries renders one numeric field as a single-line sparkline, one
// character per snapshot. Gaps (absent instrument, invalid indicator) render
// as spaces.
func graphSeries(w io.Writer, symbol, field string, series []seriesPoint) {
	values := make([]*float64, len(series))
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for i, p := range series {
		v, ok := numericField(p.rec, field)
		if !ok {
			continue
		}
		values[i] = &v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		n++
	}

	fmt.Fprintf(w, "%s %s  %s .. %s  (%d snapshots, %d values)\n",
		symbol, field, series[0].ts, series[len(series)-1].ts, len(series), n)
	if n == 0 {
		fmt.Fprintln(w, "no numeric values in range")
		return
	}

	ramp := []rune(graphRamp)
	line := make([]rune, len(series))
	for i, v := range values {
		if v == nil {
			line[i] = ' '
			continue
		}
		level := 0
		if hi > lo {
			level = int((*v - lo) / (hi - lo) * float64(len(ramp)-1))
		}
		line[i] = ramp[level]
	}

	fmt.Fprintf(w, "min %s  max %s\n",
		strconv.FormatFloat(lo, 'f', 4, 64), strconv.FormatFloat(hi, 'f', 4, 64))
	fmt.Fprintln(w, string(line))
}

// numericField extracts a plottable value; invalid indicators, absent
// instruments and non-numeric columns report false.
func numericField(rec *model.UniverseRecord, field string) (float64, bool) {
	if rec == nil {
		return 0, false
	}
	v, ok := rec.Field(field)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case *float64:
		if x == nil {
			return 0, false
		}
		return *x, true
	case float64:
		return x, true
	case int64:
		return float64(x), true
	}
	return 0, false
}
