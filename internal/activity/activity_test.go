package activity

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"runimate-gateway/internal/provider"
)

func TestNormalizeGarmin(t *testing.T) {
	raw := json.RawMessage(`{"distance":5000,"duration":1500,"startTimeLocal":"2024-06-01 07:00:00"}`)

	got := Normalize(raw, provider.Garmin)
	want := Activity{Date: "2024.06.01", Km: "5.00", TimeSec: 1500, PaceSec: 300, Provider: provider.Garmin}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeStrava(t *testing.T) {
	raw := json.RawMessage(`{"type":"Run","distance":10234.7,"moving_time":3000,"start_date_local":"2024-05-12T06:31:02Z"}`)

	got := Normalize(raw, provider.Strava)
	if got.Date != "2024.05.12" {
		t.Errorf("Date = %q, want 2024.05.12", got.Date)
	}
	if got.Km != "10.23" {
		t.Errorf("Km = %q, want 10.23", got.Km)
	}
	if got.TimeSec != 3000 {
		t.Errorf("TimeSec = %d, want 3000", got.TimeSec)
	}
	// Pace uses the unrounded distance, not the 2-decimal display value.
	meters := 10234.7
	if want := 3000 / (meters / 1000); got.PaceSec != want {
		t.Errorf("PaceSec = %v, want %v", got.PaceSec, want)
	}
	if got.Provider != provider.Strava {
		t.Errorf("Provider = %q, want strava", got.Provider)
	}
}

func TestNormalizeMissingFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Activity
	}{
		{
			name: "no distance or duration",
			raw:  `{"startTimeLocal":"2024-06-01 07:00:00"}`,
			want: Activity{Date: "2024.06.01", Km: "0.00", Provider: provider.Garmin},
		},
		{
			name: "null values",
			raw:  `{"distance":null,"duration":null,"startTimeLocal":null}`,
			want: Activity{Km: "0.00", Provider: provider.Garmin},
		},
		{
			name: "not an object",
			raw:  `[]`,
			want: Activity{Km: "0.00", Provider: provider.Garmin},
		},
		{
			name: "negative values clamp to zero",
			raw:  `{"distance":-10,"duration":-5,"startTimeLocal":"2024-06-01"}`,
			want: Activity{Date: "2024.06.01", Km: "0.00", Provider: provider.Garmin},
		},
		{
			name: "zero distance has zero pace",
			raw:  `{"distance":0,"duration":600,"startTimeLocal":"2024-06-01"}`,
			want: Activity{Date: "2024.06.01", Km: "0.00", TimeSec: 600, Provider: provider.Garmin},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(json.RawMessage(tt.raw), provider.Garmin)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeRoundsDuration(t *testing.T) {
	raw := json.RawMessage(`{"distance":2000,"duration":599.6,"startTimeLocal":"2024-06-01 07:00:00"}`)

	got := Normalize(raw, provider.Garmin)
	if got.TimeSec != 600 {
		t.Errorf("TimeSec = %d, want 600", got.TimeSec)
	}
	if got.PaceSec != 300 {
		t.Errorf("PaceSec = %v, want 300", got.PaceSec)
	}
}

func TestNormalizeUnknownProviderTriesBothKeySets(t *testing.T) {
	raw := json.RawMessage(`{"distance":1000,"moving_time":250,"start_date_local":"2023-01-02T00:00:00Z"}`)

	got := Normalize(raw, provider.Tag("other"))
	want := Activity{Date: "2023.01.02", Km: "1.00", TimeSec: 250, PaceSec: 250, Provider: "other"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeAllKeepsBadRecords(t *testing.T) {
	raws := []provider.RawActivity{
		json.RawMessage(`{"distance":5000,"duration":1500,"startTimeLocal":"2024-06-01 07:00:00"}`),
		json.RawMessage(`{}`),
		json.RawMessage(`not json`),
		json.RawMessage(`{"distance":3000,"duration":900,"startTimeLocal":"2024-05-30 18:00:00"}`),
	}

	got := NormalizeAll(raws, provider.Garmin)
	want := []Activity{
		{Date: "2024.06.01", Km: "5.00", TimeSec: 1500, PaceSec: 300, Provider: provider.Garmin},
		{Km: "0.00", Provider: provider.Garmin},
		{Km: "0.00", Provider: provider.Garmin},
		{Date: "2024.05.30", Km: "3.00", TimeSec: 900, PaceSec: 300, Provider: provider.Garmin},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeAllEmpty(t *testing.T) {
	got := NormalizeAll(nil, provider.Strava)
	if got == nil || len(got) != 0 {
		t.Errorf("NormalizeAll(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-06-01 07:00:00", "2024.06.01"},
		{"2024-06-01T07:00:00Z", "2024.06.01"},
		{"2024-06-01", "2024.06.01"},
		{"2024-06", "2024.06"},
		{"06/01/2024 07:00", "06/01/2024"},
		{"", ""},
		{"2024-06-\xff1 07:00", "2024.06.\xff1"},
		{"２０２４-06-01 07:00", "２０２４.06.01"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
