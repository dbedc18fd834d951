package temporal

import (
	"testing"
	"time"
)

// refMonday is a known Monday used as the anchor for relative phrases.
var refMonday = time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)

func TestResolveNextWeekday(t *testing.T) {
	res := Resolve("el próximo viernes a las 3pm", refMonday)
	if res.Date == nil {
		t.Fatal("expected a date")
	}
	// this Friday (+4) plus one extra week
	want := refMonday.AddDate(0, 0, 11)
	if res.Date.Day() != want.Day() || res.Date.Month() != want.Month() {
		t.Fatalf("expected %v, got %v", want, res.Date)
	}
	if res.Time == nil || *res.Time != "15:00" {
		t.Fatalf("expected 15:00, got %v", res.Time)
	}
}

func TestResolveThisWeekday(t *testing.T) {
	res := Resolve("este viernes", refMonday)
	if res.Date == nil {
		t.Fatal("expected a date")
	}
	if got := res.Date.Weekday(); got != time.Friday {
		t.Fatalf("expected Friday, got %v", got)
	}
	if diff := res.Date.Sub(truncate(refMonday)); diff != 4*24*time.Hour {
		t.Fatalf("expected +4 days, got %v", diff)
	}
}

func TestWeekdayNeverResolvesToPast(t *testing.T) {
	// Asking for "lunes" on a Monday rolls to next week.
	res := Resolve("el lunes", refMonday)
	if res.Date == nil {
		t.Fatal("expected a date")
	}
	if diff := res.Date.Sub(truncate(refMonday)); diff != 7*24*time.Hour {
		t.Fatalf("expected +7 days, got %v", diff)
	}
}

func TestResolveRelativeWords(t *testing.T) {
	cases := []struct {
		text string
		days int
	}{
		{"hoy", 0},
		{"mañana", 1},
		{"pasado mañana", 2},
		{"la próxima semana", 7},
	}
	for _, tc := range cases {
		res := Resolve(tc.text, refMonday)
		if res.Date == nil {
			t.Fatalf("%q: expected a date", tc.text)
		}
		if diff := res.Date.Sub(truncate(refMonday)); diff != time.Duration(tc.days)*24*time.Hour {
			t.Fatalf("%q: expected +%d days, got %v", tc.text, tc.days, diff)
		}
		if res.Time != nil {
			t.Fatalf("%q: expected nil time, got %v", tc.text, *res.Time)
		}
	}
}

func TestNormalizeFoldsAccentsAndEnye(t *testing.T) {
	if got := normalize("  MaÑana SÁBADO a las ocho "); got != "manana sabado a las ocho" {
		t.Fatalf("normalize: got %q", got)
	}
}

func TestResolveDayOfMonthName(t *testing.T) {
	res := Resolve("el 15 de marzo", refMonday)
	if res.Date == nil || res.Date.Day() != 15 || res.Date.Month() != time.March {
		t.Fatalf("expected March 15, got %v", res.Date)
	}
	// Already-past day+month rolls to next year.
	res = Resolve("el 1 de enero", refMonday)
	if res.Date == nil || res.Date.Year() != 2026 {
		t.Fatalf("expected next year, got %v", res.Date)
	}
}

func TestResolveBareDayRollsToNextMonth(t *testing.T) {
	res := Resolve("el 1", refMonday)
	if res.Date == nil || res.Date.Month() != time.April || res.Date.Day() != 1 {
		t.Fatalf("expected April 1, got %v", res.Date)
	}
	res = Resolve("el 20", refMonday)
	if res.Date == nil || res.Date.Month() != time.March || res.Date.Day() != 20 {
		t.Fatalf("expected March 20, got %v", res.Date)
	}
}

func TestResolveNumericDate(t *testing.T) {
	res := Resolve("25/12", refMonday)
	if res.Date == nil || res.Date.Day() != 25 || res.Date.Month() != time.December {
		t.Fatalf("expected Dec 25, got %v", res.Date)
	}
	res = Resolve("10/02/2026", refMonday)
	if res.Date == nil || res.Date.Year() != 2026 || res.Date.Month() != time.February {
		t.Fatalf("expected Feb 2026, got %v", res.Date)
	}
}

func TestResolveTimeForms(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"a las 3pm", "15:00"},
		{"a la 1", "01:00"},
		{"9am", "09:00"},
		{"15:30", "15:30"},
		{"3:45 pm", "15:45"},
		{"4 de la tarde", "16:00"},
		{"9 de la noche", "21:00"},
		{"8 de la mañana", "08:00"},
		{"12am", "00:00"},
	}
	for _, tc := range cases {
		got, ok := ResolveTime(tc.text)
		if !ok {
			t.Fatalf("%q: expected a time", tc.text)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.text, tc.want, got)
		}
	}
}

func TestTimeOfDayQualifierIsNotTomorrow(t *testing.T) {
	res := Resolve("a las 8 de la mañana", refMonday)
	if res.Date != nil {
		t.Fatalf("expected nil date, got %v", res.Date)
	}
	if res.Time == nil || *res.Time != "08:00" {
		t.Fatalf("expected 08:00, got %v", res.Time)
	}
}

func TestUnrecognizedYieldsNil(t *testing.T) {
	res := Resolve("no sé cuándo puedo ir", refMonday)
	if res.Date != nil || res.Time != nil {
		t.Fatalf("expected nil resolution, got %+v", res)
	}
}

func truncate(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
