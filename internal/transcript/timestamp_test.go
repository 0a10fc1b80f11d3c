package transcript

import "testing"

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{65, "1:05"},
		{600, "10:00"},
		{125.9, "2:05"},
		{3599, "59:59"},
		{3600, "60:00"},
		{-3, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.in); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1:05", want: 65},
		{in: "0:00", want: 0},
		{in: "10:00", want: 600},
		{in: " 0:15 ", want: 15},
		{in: "007:59", want: 479},
		{in: "2:5", wantErr: true},
		{in: "1:005", wantErr: true},
		{in: "1:75", wantErr: true},
		{in: "+1:05", wantErr: true},
		{in: "1:+5", wantErr: true},
		{in: "+1:+05", wantErr: true},
		{in: ":05", wantErr: true},
		{in: "1:", wantErr: true},
		{in: "1: 05", wantErr: true},
		{in: "65", wantErr: true},
		{in: "a:05", wantErr: true},
		{in: "1:xx", wantErr: true},
		{in: "1:05:30", wantErr: true},
		{in: "-1:05", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimestamp(%q) = %d, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	for s := 0; s <= 4*3600; s++ {
		got, err := ParseTimestamp(FormatTimestamp(float64(s)))
		if err != nil {
			t.Fatalf("round trip %d: %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip %d = %d", s, got)
		}
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "1:05", want: 65},
		{in: "65", want: 65},
		{in: "12.5", want: 12.5},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "later", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePosition(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePosition(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
