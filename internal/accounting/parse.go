package accounting

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

// Columns names the accounting output columns that are read.
type Columns struct {
	Month      string
	Account    string
	User       string
	Used       string
	Restituted string
}

// DefaultColumns returns the column names printed by accuse.
func DefaultColumns() Columns {
	return Columns{
		Month:      "Month",
		Account:    "Account",
		User:       "User",
		Used:       "SBU's",
		Restituted: "Restituted",
	}
}

var (
	monthField = regexp.MustCompile(`^(\d{4}-\d{2}|\d{2}-\d{4})`)
	clockField = regexp.MustCompile(`^(?:(\d+)-)?(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)$`)
)

// ParseUsage reads the whitespace-delimited table printed by accuse.
// When requireUser is set the output must carry a user column.
func ParseUsage(output []byte, cols Columns, requireUser bool) ([]models.UsageRecord, error) {
	var (
		header  []string
		idx     map[string]int
		records []models.UsageRecord
	)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || isSeparator(text) {
			continue
		}
		fields := joinDayFields(strings.Fields(text))

		if header == nil {
			if slices.Contains(fields, cols.Month) && slices.Contains(fields, cols.Used) {
				header = fields
				var err error
				if idx, err = columnIndex(header, cols, requireUser); err != nil {
					return nil, err
				}
			}
			continue
		}

		if !monthField.MatchString(fields[0]) {
			continue
		}
		if len(fields) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrUnparseableOutput, line, len(fields), len(header))
		}

		rec, err := parseRow(fields, idx, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrUnparseableOutput, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableOutput, err)
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no header with %q and %q columns", ErrUnparseableOutput, cols.Month, cols.Used)
	}
	return records, nil
}

func columnIndex(header []string, cols Columns, requireUser bool) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}

	required := []string{cols.Month, cols.Account, cols.Used, cols.Restituted}
	if requireUser {
		required = append(required, cols.User)
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrUnparseableOutput, name)
		}
	}
	return idx, nil
}

func parseRow(fields []string, idx map[string]int, cols Columns) (models.UsageRecord, error) {
	month, err := models.ParseMonth(monthField.FindString(fields[idx[cols.Month]]))
	if err != nil {
		return models.UsageRecord{}, err
	}
	used, err := ParseDuration(fields[idx[cols.Used]])
	if err != nil {
		return models.UsageRecord{}, fmt.Errorf("%s: %w", cols.Used, err)
	}
	restituted, err := ParseDuration(fields[idx[cols.Restituted]])
	if err != nil {
		return models.UsageRecord{}, fmt.Errorf("%s: %w", cols.Restituted, err)
	}

	rec := models.UsageRecord{
		Month:      month,
		Account:    fields[idx[cols.Account]],
		Used:       used,
		Restituted: restituted,
	}
	if i, ok := idx[cols.User]; ok {
		rec.User = fields[i]
	}
	return rec, nil
}

// ParseDuration reads "[D-]H:MM:SS[.frac]", "D days H:MM:SS" or a bare number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	var days int64
	if head, rest, ok := strings.Cut(s, " "); ok {
		n, err := strconv.ParseInt(head, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		unit, clock, _ := strings.Cut(strings.TrimSpace(rest), " ")
		if unit != "days" && unit != "day" {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		days = n
		s = strings.TrimSpace(clock)
		if s == "" {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}

	m := clockField.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if m[1] != "" {
		d, _ := strconv.ParseInt(m[1], 10, 64)
		days += d
	}
	hours, _ := strconv.ParseInt(m[2], 10, 64)
	minutes, _ := strconv.ParseInt(m[3], 10, 64)
	seconds, _ := strconv.ParseFloat(m[4], 64)
	if minutes > 59 || seconds >= 60 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return d, nil
}

// ParseLinkedUsers returns the usernames listed by accinfo below its
// "User ... Group" header.
func ParseLinkedUsers(output []byte) ([]string, error) {
	lines := strings.Split(string(output), "\n")
	for i, l := range lines {
		if !strings.Contains(l, "User") || !strings.Contains(l, "Group") {
			continue
		}

		var users []string
		// The line after the header is a separator.
		for _, row := range lines[min(i+2, len(lines)):] {
			fields := strings.Fields(row)
			if len(fields) == 0 || isSeparator(row) {
				continue
			}
			users = append(users, fields[0])
		}
		return users, nil
	}
	return nil, fmt.Errorf("%w: no User/Group header in accinfo output", ErrUnparseableOutput)
}

func isSeparator(s string) bool {
	return strings.Trim(s, "-=+| \t") == ""
}

// joinDayFields folds "3 days 01:00:00" back into one field.
func joinDayFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		if i+2 < len(fields) && (fields[i+1] == "days" || fields[i+1] == "day") {
			if _, err := strconv.Atoi(fields[i]); err == nil {
				out = append(out, fields[i]+" "+fields[i+1]+" "+fields[i+2])
				i += 2
				continue
			}
		}
		out = append(out, fields[i])
	}
	return out
}
