// Command validate checks captured retrieval tool output offline. For each
// file it runs the parse phases the pipeline applies (header, body, sentinel
// sanitization, emptiness, footer) and reports PASS/FAIL per phase.
//
// Usage:
//
//	retrieve_cscs --show_records ... > pay.txt
//	go run ./cmd/validate -encoding iso-8859-1 pay.txt profile.txt
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var footerRe = regexp.MustCompile(`^\s*(\d+)\s+records?\s*$`)

func main() {
	encoding := flag.String("encoding", "utf-8", "encoding of the captured output: utf-8 or iso-8859-1")
	preview := flag.Bool("preview", false, "print the first rows of each parsed table")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, flag.Args(), *encoding, *preview))
}

func run(w io.Writer, paths []string, encoding string, preview bool) int {
	fmt.Fprintln(w, "=== Retrieval Output Validation ===")

	allPassed := true
	for _, path := range paths {
		text, err := readOutput(path, encoding)
		if err != nil {
			fmt.Fprintf(w, "\nFATAL: %v\n", err)
			allPassed = false
			continue
		}

		phases, table := validate(text)
		fmt.Fprintf(w, "\n%s\n", path)
		for _, p := range phases {
			status := "\033[32mPASS\033[0m"
			if !p.passed() {
				status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
				allPassed = false
			}
			fmt.Fprintf(w, "  %-24s %s\n", p.name, status)
			for _, e := range p.errors {
				fmt.Fprintf(w, "    - %s\n", e)
			}
		}
		if table != nil {
			fmt.Fprintf(w, "  %d rows, %d columns\n", table.Len(), len(table.Columns))
			if preview {
				_ = domain.WritePreview(w, table, domain.DefaultPreviewRows)
			}
		}
	}

	fmt.Fprintln(w)
	if !allPassed {
		fmt.Fprintln(w, "RESULT: FAIL")
		return 1
	}
	fmt.Fprintln(w, "RESULT: PASS")
	return 0
}

func readOutput(path, encoding string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(encoding) {
	case "utf-8", "utf8":
		return string(b), nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().String(string(b))
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// validate runs every phase on one captured output. The table is nil when
// parsing failed.
func validate(text string) ([]*phase, *domain.Table) {
	header := &phase{name: "Header"}
	body := &phase{name: "Body"}
	sentinel := &phase{name: "Sentinel sanitization"}
	empty := &phase{name: "Non-empty"}
	footer := &phase{name: "Footer"}
	phases := []*phase{header, body, sentinel, empty, footer}

	table, err := domain.ParseOutput(text, "captured output")
	var malformed *domain.MalformedOutputError
	switch {
	case errors.As(err, &malformed) && malformed.Line <= 1:
		header.errorf("%s", malformed.Reason)
	case errors.As(err, &malformed):
		body.errorf("line %d: %s", malformed.Line, malformed.Reason)
	case errors.Is(err, domain.ErrNoData):
		empty.errorf("no data rows")
	case err != nil:
		body.errorf("%v", err)
	}
	if table == nil {
		return phases, nil
	}

	for _, c := range table.Columns {
		for i, v := range c.Values {
			if f, ok := v.Float(); ok && f == domain.MissingSentinel {
				sentinel.errorf("column %s row %d still holds the sentinel", c.Name, i)
			}
		}
	}
	checkFooter(footer, text, table.Len())
	return phases, table
}

// checkFooter compares a "<n> records" summary line with the parsed row
// count. Outputs without such a line pass.
func checkFooter(p *phase, text string, rows int) {
	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	m := footerRe.FindStringSubmatch(last)
	if m == nil {
		return
	}
	n, _ := strconv.Atoi(m[1])
	if n != rows {
		p.errorf("footer reports %d records, parsed %d rows", n, rows)
	}
}
