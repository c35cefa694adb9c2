// Command mockretrieve stands in for the data warehouse retrieval tool in
// local runs and tests. It accepts the tool's command line and prints a
// deterministic table in the tool's output format. Extra flags placed before
// the tool arguments inject failures.
//
// Usage:
//
//	RETRIEVE_COMMAND="go run ./cmd/mockretrieve -sentinel-every 4" \
//	JOB_STATIONS=PAY JOB_START=20210912000000 JOB_END=20210913000000 \
//	  go run ./cmd/etl
//
//	go run ./cmd/mockretrieve -sleep 130s --show_records -s surface \
//	  -i nat_abbr,PAY -p 1547,1541 -t 20210912000000-20210912060000
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// maxRows bounds surface output like the real tool's record limit.
const maxRows = 10000

type station struct {
	name      string
	lat, lon  float64
	elevation float64
	wmo       string
}

var stations = map[string]station{
	"PAY":   {name: "Payerne", lat: 46.81, lon: 6.94, elevation: 491, wmo: "06610"},
	"06610": {name: "Payerne", lat: 46.81, lon: 6.94, elevation: 491, wmo: "06610"},
	"SMA":   {name: "Zürich / Fluntern", lat: 47.38, lon: 8.57, elevation: 556, wmo: "06660"},
	"GVE":   {name: "Genève / Cointrin", lat: 46.25, lon: 6.13, elevation: 411, wmo: "06700"},
}

type options struct {
	// Tool arguments.
	showRecords bool
	join        string
	kind        string
	index       string
	params      string
	period      string
	window      int
	levels      int
	limitation  int

	// Failure injection.
	sleep         time.Duration
	exit          int
	stderr        string
	sentinelEvery int
	empty         bool
	latin1        bool
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if opts.sleep > 0 {
		time.Sleep(opts.sleep)
	}
	if opts.stderr != "" {
		fmt.Fprint(os.Stderr, opts.stderr)
	}
	if opts.exit != 0 {
		os.Exit(opts.exit)
	}

	if err := run(os.Stdout, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("mockretrieve", flag.ContinueOnError)
	fs.BoolVar(&o.showRecords, "show_records", false, "print records (always on)")
	fs.StringVar(&o.join, "j", "lat,lon", "join columns")
	fs.StringVar(&o.kind, "s", "surface", "surface or profile")
	fs.StringVar(&o.index, "i", "", "index key and station, e.g. nat_abbr,PAY")
	fs.StringVar(&o.params, "p", "", "comma-separated parameter codes")
	fs.StringVar(&o.period, "t", "", "period start-end, 14-digit timestamps")
	fs.IntVar(&o.window, "w", 0, "profile window")
	fs.IntVar(&o.levels, "C", 34, "profile level count")
	fs.IntVar(&o.limitation, "use-limitation", 0, "data use limitation level")

	fs.DurationVar(&o.sleep, "sleep", 0, "sleep before answering")
	fs.IntVar(&o.exit, "exit", 0, "exit with this status without output")
	fs.StringVar(&o.stderr, "stderr", "", "text written to stderr")
	fs.IntVar(&o.sentinelEvery, "sentinel-every", 0, "write the missing-value sentinel in every n-th row")
	fs.BoolVar(&o.empty, "empty", false, "answer with zero records")
	fs.BoolVar(&o.latin1, "latin1", false, "encode output as ISO-8859-1")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(w io.Writer, o options) error {
	columns, rows, err := generate(o)
	if err != nil {
		return err
	}

	var out io.Writer = w
	if o.latin1 {
		tw := transform.NewWriter(w, charmap.ISO8859_1.NewEncoder())
		defer tw.Close()
		out = tw
	}
	bw := bufio.NewWriter(out)
	if err := domain.WriteToolOutput(bw, columns, rows); err != nil {
		return err
	}
	return bw.Flush()
}

// generate builds the table the tool would answer with: join columns, termin,
// then one column per parameter code.
func generate(o options) ([]string, [][]string, error) {
	kind, err := domain.ParseQueryKind(o.kind)
	if err != nil {
		return nil, nil, err
	}
	_, id, ok := strings.Cut(o.index, ",")
	if !ok || id == "" {
		return nil, nil, fmt.Errorf("invalid index argument %q", o.index)
	}
	start, end, err := parsePeriod(o.period)
	if err != nil {
		return nil, nil, err
	}
	params := strings.Split(o.params, ",")
	if o.params == "" {
		return nil, nil, errors.New("no parameter codes")
	}
	joins := strings.Split(o.join, ",")

	columns := append(append(append([]string{}, joins...), domain.TimeColumn), params...)
	st, known := stations[id]
	if !known {
		st = station{name: id, lat: 46.0, lon: 8.0, wmo: "00000"}
	}

	var times []time.Time
	switch kind {
	case domain.Profile:
		for range max(o.levels, 1) {
			times = append(times, start)
		}
	default:
		for t := start; !t.After(end) && len(times) < maxRows; t = t.Add(time.Hour) {
			times = append(times, t)
		}
	}
	if o.empty {
		times = nil
	}

	rows := make([][]string, len(times))
	for r, t := range times {
		row := make([]string, 0, len(columns))
		for _, j := range joins {
			row = append(row, st.field(j))
		}
		row = append(row, domain.FormatTimestamp(t))
		for p, code := range params {
			row = append(row, value(code, r, p == len(params)-1 && o.sentinelEvery > 0 && (r+1)%o.sentinelEvery == 0))
		}
		rows[r] = row
	}
	return columns, rows, nil
}

func (s station) field(name string) string {
	switch name {
	case "lat":
		return strconv.FormatFloat(s.lat, 'f', 2, 64)
	case "lon":
		return strconv.FormatFloat(s.lon, 'f', 2, 64)
	case "elev":
		return strconv.FormatFloat(s.elevation, 'f', 0, 64)
	case "name":
		return s.name
	case "wmo_ind":
		return s.wmo
	default:
		return ""
	}
}

func value(code string, row int, sentinel bool) string {
	if sentinel {
		return "10000000"
	}
	n, _ := strconv.Atoi(code)
	return strconv.FormatFloat(float64(n%100)/10+0.5*float64(row), 'f', 1, 64)
}

func parsePeriod(s string) (time.Time, time.Time, error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q", s)
	}
	start, err := domain.ParseTimestamp(a)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := domain.ParseTimestamp(b)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("period %q ends before it starts", s)
	}
	return start, end, nil
}
