// Command perf-regression compares two `go test -bench` outputs and fails
// when a tracked goSession benchmark regresses past a threshold.
//
//	go test -run '^$' -bench 'Session|Login' -count 6 . > new.txt
//	perf-regression -baseline old.txt -candidate new.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

const defaultThreshold = 0.30

// tracked lists the read-path and login benchmarks and the units checked.
var tracked = map[string][]string{
	"BenchmarkSessionValidRead":                     {"ns/op", "allocs/op"},
	"BenchmarkSessionValidReadParallelDeduplicated": {"ns/op"},
	"BenchmarkSessionRefreshingRead":                {"ns/op", "allocs/op"},
	"BenchmarkLogin":                                {"ns/op"},
}

// samples maps benchmark name to unit to observed values.
type samples map[string]map[string][]float64

type comparison struct {
	benchmark string
	unit      string
	baseline  float64
	candidate float64
	delta     float64
	missing   bool
}

func main() {
	baselinePath := flag.String("baseline", "", "baseline benchmark output")
	candidatePath := flag.String("candidate", "", "candidate benchmark output")
	threshold := flag.Float64("threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.Parse()

	if *baselinePath == "" || *candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if *threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	baseline, err := parseFile(*baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(*candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	results := compare(baseline, candidate, tracked)
	report(os.Stdout, results)

	if failures := regressions(results, *threshold); len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
		os.Exit(1)
	}
}

func parseFile(path string) (samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f, tracked)
}

// parse collects value/unit pairs from benchmark lines whose name is in want.
func parse(r io.Reader, want map[string][]string) (samples, error) {
	out := samples{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		name := trimProcs(fields[0])
		if _, ok := want[name]; !ok {
			continue
		}
		if out[name] == nil {
			out[name] = map[string][]float64{}
		}
		// fields[1] is the iteration count.
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], v)
		}
	}
	return out, sc.Err()
}

func compare(baseline, candidate samples, want map[string][]string) []comparison {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []comparison
	for _, name := range names {
		for _, unit := range want[name] {
			c := comparison{benchmark: name, unit: unit}
			b, k := baseline[name][unit], candidate[name][unit]
			if len(b) == 0 || len(k) == 0 {
				c.missing = true
				out = append(out, c)
				continue
			}
			c.baseline, c.candidate = median(b), median(k)
			if c.baseline > 0 {
				c.delta = (c.candidate - c.baseline) / c.baseline
			}
			out = append(out, c)
		}
	}
	return out
}

func regressions(results []comparison, threshold float64) []string {
	var failures []string
	for _, c := range results {
		switch {
		case c.missing:
			failures = append(failures, fmt.Sprintf("missing samples for %s %s", c.benchmark, c.unit))
		case c.baseline <= 0:
			failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", c.benchmark, c.unit))
		case c.delta > threshold:
			failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)",
				c.benchmark, c.unit, c.delta*100, threshold*100))
		}
	}
	return failures
}

func report(w io.Writer, results []comparison) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "benchmark\tunit\tbaseline\tcandidate\tdelta")
	for _, c := range results {
		if c.missing {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\n", c.benchmark, c.unit)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%+0.2f%%\n", c.benchmark, c.unit, c.baseline, c.candidate, c.delta*100)
	}
	_ = tw.Flush()
}

// trimProcs drops the -GOMAXPROCS suffix from a benchmark name.
func trimProcs(raw string) string {
	if i := strings.LastIndexByte(raw, '-'); i > 0 {
		if _, err := strconv.Atoi(raw[i+1:]); err == nil {
			return raw[:i]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
