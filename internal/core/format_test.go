package core

import "testing"

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "simple date", raw: "2004-04-04", want: "4 Avr. 04"},
		{name: "two digit day", raw: "2022-11-17", want: "17 Nov. 22"},
		{name: "january", raw: "2023-01-01", want: "1 Jan. 23"},
		{name: "june and july share label", raw: "2021-06-09", want: "9 Jui. 21"},
		{name: "july", raw: "2021-07-09", want: "9 Jui. 21"},
		{name: "leap day", raw: "2024-02-29", want: "29 Fév. 24"},
		{name: "not a date", raw: "not-a-date", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "bad month", raw: "2022-13-01", wantErr: true},
		{name: "bad day", raw: "2023-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatDate(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FormatDate(%q) = %q, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatDate(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("FormatDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{code: "pending", want: "En attente"},
		{code: "accepted", want: "Accepté"},
		{code: "refused", want: "Refusé"},
		// Unknown codes pass through unmapped.
		{code: "archived", want: "archived"},
		{code: "", want: ""},
	}
	for _, tt := range tests {
		if got := FormatStatus(tt.code); got != tt.want {
			t.Errorf("FormatStatus(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
