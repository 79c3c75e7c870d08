package daterange

import (
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

func fixedResolver() Resolver {
	return Resolver{Now: func() time.Time {
		return time.Date(2019, time.May, 14, 10, 30, 0, 0, time.UTC)
	}}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		start     any
		end       any
		wantStart string
		wantEnd   string
	}{
		{"BothAbsent", nil, nil, "01-01-2019", "31-05-2019"},
		{"EmptyStrings", "", "", "01-01-2019", "31-05-2019"},
		{"YearString", "2018", nil, "01-01-2018", "31-05-2019"},
		{"YearInt", 2018, 2018, "01-01-2018", "31-12-2018"},
		{"MonthYear", "05-2018", "02-2019", "01-05-2018", "28-02-2019"},
		{"LeapFebruary", "2020", "02-2020", "01-01-2020", "29-02-2020"},
		{"FullDate", "22-10-2018", "03-01-2019", "22-10-2018", "03-01-2019"},
		{"SingleDigitFields", "1-2-2018", "9-3-2018", "01-02-2018", "09-03-2018"},
		{"SameDay", "14-05-2019", "14-05-2019", "14-05-2019", "14-05-2019"},
	}

	r := fixedResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := r.Resolve(tt.start, tt.end)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got := iv.StartString(); got != tt.wantStart {
				t.Errorf("StartString() = %q, want %q", got, tt.wantStart)
			}
			if got := iv.EndString(); got != tt.wantEnd {
				t.Errorf("EndString() = %q, want %q", got, tt.wantEnd)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := fixedResolver()
	inputs := [][2]any{
		{nil, nil},
		{"2018", "2019"},
		{"05-2018", "02-2019"},
		{"22-10-2018", nil},
	}

	for _, in := range inputs {
		first, err := r.Resolve(in[0], in[1])
		if err != nil {
			t.Fatalf("Resolve(%v, %v) error = %v", in[0], in[1], err)
		}
		second, err := r.Resolve(first.StartString(), first.EndString())
		if err != nil {
			t.Fatalf("Resolve() second pass error = %v", err)
		}
		if !first.Start.Equal(second.Start) || !first.End.Equal(second.End) {
			t.Errorf("Resolve() not idempotent: %s then %s", first, second)
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name  string
		start any
		end   any
		want  error
	}{
		{"TooManyDashes", "01-01-01-2019", nil, ErrInvalidDateFormat},
		{"NotNumeric", "May-2019", nil, ErrInvalidDateFormat},
		{"BadMonth", "13-2019", nil, ErrInvalidDateFormat},
		{"NoSuchDay", "31-02-2019", nil, ErrInvalidDateFormat},
		{"BadEnd", nil, "2019-", ErrInvalidDateFormat},
		{"SignedMonth", "+5-2019", nil, ErrInvalidDateFormat},
		{"SignedYear", nil, "01-05-+2019", ErrInvalidDateFormat},
		{"InnerSpace", "1 -05-2019", nil, ErrInvalidDateFormat},
		{"FloatType", 2019.0, nil, ErrInvalidDateType},
		{"BoolType", nil, true, ErrInvalidDateType},
		{"Reversed", "2019", "2018", ErrEmptyInterval},
	}

	r := fixedResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.start, tt.end)
			if !errors.Is(err, tt.want) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInterval_Months(t *testing.T) {
	r := fixedResolver()
	iv, err := r.Resolve("15-11-2018", "02-02-2019")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []models.Month{
		{Year: 2018, Month: time.November},
		{Year: 2018, Month: time.December},
		{Year: 2019, Month: time.January},
		{Year: 2019, Month: time.February},
	}
	got := iv.Months()
	if len(got) != len(want) {
		t.Fatalf("Months() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Months()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInterval_MonthsSingle(t *testing.T) {
	iv := Interval{
		Start: time.Date(2019, time.March, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2019, time.March, 6, 0, 0, 0, 0, time.UTC),
	}
	if got := iv.Months(); len(got) != 1 || got[0].String() != "2019-03" {
		t.Errorf("Months() = %v, want [2019-03]", got)
	}
}
