package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the 14-digit YYYYMMDDHHMMSS form the retrieval tool
// expects for -t arguments and emits in the termin column.
const TimestampLayout = "20060102150405"

// QueryKind selects the observation family requested from the data warehouse.
type QueryKind int

const (
	// Surface requests a time series from a fixed surface station.
	Surface QueryKind = iota
	// Profile requests a single-instant vertical sounding.
	Profile
)

func (k QueryKind) String() string {
	switch k {
	case Surface:
		return "surface"
	case Profile:
		return "profile"
	default:
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
}

// ParseQueryKind accepts "surface" or "profile" (case-insensitive).
func ParseQueryKind(s string) (QueryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "surface":
		return Surface, nil
	case "profile":
		return Profile, nil
	default:
		return 0, fmt.Errorf("invalid query kind %q (allowed: surface, profile)", s)
	}
}

// Fixed per-kind arguments of the retrieval tool.
var (
	surfaceJoinColumns = []string{"lat", "lon", "name", "wmo_ind"}
	profileJoinColumns = []string{"lat", "lon", "elev", "name", "wmo_ind"}

	// DefaultSurfaceParams are the parameter codes sent when a surface request names none.
	DefaultSurfaceParams = []string{"1547", "1541"}
	// DefaultProfileParams cover every sounding column except pressure.
	DefaultProfileParams = []string{"742", "743", "745", "746", "747", "748"}
)

const (
	surfaceIndexKey   = "nat_abbr"
	profileIndexKey   = "int_ind"
	surfaceUseLimit   = 50
	profileWindow     = 22
	profileLevelCount = 34
)

// RetrievalRequest fully determines one invocation of the retrieval tool.
// Build it with NewSurfaceRequest or NewProfileRequest; treat it as immutable.
type RetrievalRequest struct {
	Kind      QueryKind
	StationID string
	Start     time.Time
	End       time.Time
	Params    []string
}

// NewSurfaceRequest builds a surface-station time-series request for [start, end].
// With no params the default surface parameter codes are used.
func NewSurfaceRequest(stationID string, start, end time.Time, params ...string) RetrievalRequest {
	if len(params) == 0 {
		params = DefaultSurfaceParams
	}
	return RetrievalRequest{
		Kind:      Surface,
		StationID: stationID,
		Start:     start,
		End:       end,
		Params:    append([]string(nil), params...),
	}
}

// NewProfileRequest builds a vertical-profile request for a single instant.
func NewProfileRequest(stationID string, date time.Time, params ...string) RetrievalRequest {
	if len(params) == 0 {
		params = DefaultProfileParams
	}
	return RetrievalRequest{
		Kind:      Profile,
		StationID: stationID,
		Start:     date,
		End:       date,
		Params:    append([]string(nil), params...),
	}
}

// Validate rejects requests the retrieval tool could not interpret.
func (r RetrievalRequest) Validate() error {
	if r.Kind != Surface && r.Kind != Profile {
		return fmt.Errorf("unknown query kind %d", int(r.Kind))
	}
	if r.StationID == "" {
		return errors.New("station id is required")
	}
	if strings.ContainsAny(r.StationID, ", \t\r\n") {
		return fmt.Errorf("station id %q must not contain commas or whitespace", r.StationID)
	}
	if len(r.Params) == 0 {
		return errors.New("at least one parameter code is required")
	}
	for _, p := range r.Params {
		if _, err := strconv.ParseUint(p, 10, 32); err != nil {
			return fmt.Errorf("parameter code %q is not numeric", p)
		}
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("time range is required")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end %s is before start %s", FormatTimestamp(r.End), FormatTimestamp(r.Start))
	}
	if r.Kind == Profile && !r.End.Equal(r.Start) {
		return errors.New("profile requests take a single timestamp")
	}
	return nil
}

// Period renders the requested range the way the tool's -t flag expects,
// e.g. "20210912000000-20210913000000".
func (r RetrievalRequest) Period() string {
	return FormatTimestamp(r.Start) + "-" + FormatTimestamp(r.End)
}

// Args renders the tool arguments (without the binary) in canonical order:
// --show_records -j -s -i -p -t [-w] [-C | --use-limitation].
func (r RetrievalRequest) Args() []string {
	var (
		joins    []string
		indexKey string
	)
	switch r.Kind {
	case Profile:
		joins, indexKey = profileJoinColumns, profileIndexKey
	default:
		joins, indexKey = surfaceJoinColumns, surfaceIndexKey
	}

	args := []string{
		"--show_records",
		"-j", strings.Join(joins, ","),
		"-s", r.Kind.String(),
		"-i", indexKey + "," + r.StationID,
		"-p", strings.Join(r.Params, ","),
		"-t", r.Period(),
	}
	if r.Kind == Profile {
		args = append(args,
			"-w", strconv.Itoa(profileWindow),
			"-C", strconv.Itoa(profileLevelCount),
		)
	} else {
		args = append(args, "--use-limitation", strconv.Itoa(surfaceUseLimit))
	}
	return args
}

// Command renders the complete argv for the given binary. binary may carry
// prefix arguments (e.g. a wrapper script and its flags).
func (r RetrievalRequest) Command(binary []string) Command {
	argv := make([]string, 0, len(binary)+16)
	argv = append(argv, binary...)
	argv = append(argv, r.Args()...)
	return Command{Argv: argv}
}

// Command is a rendered invocation of the retrieval tool.
type Command struct {
	Argv []string
}

// String renders the command as a single shell-safe line for logging.
// Splitting the result with POSIX shell rules yields Argv exactly.
func (c Command) String() string {
	quoted := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsFunc(s, needsQuoting) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_.,/:=+@%", r)
}

// FormatTimestamp renders t in UTC as YYYYMMDDHHMMSS.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a 14-digit YYYYMMDDHHMMSS string as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q: want 14 digits YYYYMMDDHHMMSS", s)
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t, nil
}
