package core

import (
	"testing"
)

// ----------------------------------------------------------------------------
// ParseMoney Tests
// ----------------------------------------------------------------------------

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "integer", input: "12", want: 1200},
		{name: "two decimals", input: "12.50", want: 1250},
		{name: "one decimal", input: "7.5", want: 750},
		{name: "leading decimal point", input: ".99", want: 99},
		{name: "zero", input: "0", want: 0},
		{name: "rounds half up", input: "1.005", want: 101},
		{name: "rounds down", input: "1.004", want: 100},
		{name: "negative rounds away from zero", input: "-1.005", want: -101},
		{name: "whitespace trimmed", input: "  3.25 ", want: 325},
		{name: "scientific notation", input: "1e2", want: 10000},
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "currency symbol", input: "$5.00", wantErr: true},
		{name: "fraction syntax rejected", input: "1/3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMoney(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		m    Money
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1250, "12.50"},
		{-75, "-0.75"},
		{100000, "1000.00"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tt.m), got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Field parser Tests
// ----------------------------------------------------------------------------

func TestParseOptionalCount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantNil bool
		wantErr bool
	}{
		{name: "empty is absent", input: "", wantNil: true},
		{name: "whitespace is absent", input: "   ", wantNil: true},
		{name: "zero is present", input: "0", want: 0},
		{name: "integer", input: "3", want: 3},
		{name: "integer valued float", input: "2.0", want: 2},
		{name: "fractional rejected", input: "1.5", wantErr: true},
		{name: "negative rejected", input: "-1", wantErr: true},
		{name: "text rejected", input: "two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptionalCount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("got %d, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("got nil, want %d", tt.want)
			}
			if *got != tt.want {
				t.Errorf("got %d, want %d", *got, tt.want)
			}
		})
	}
}

func TestParseLocationID(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"132", 132, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"", 0, true},
		{"JFK", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLocationID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLocationID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLocationID(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"1.25", 1.25, false},
		{"0", 0, false},
		{"12", 12, false},
		{"-0.5", 0, true},
		{"", 0, true},
		{"far", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDistance(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDistance(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDistance(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Header Tests
// ----------------------------------------------------------------------------

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"\ufefftpep_pickup_datetime", " PULocationID ", "fare_amount", "fare_amount"})

	tests := []struct {
		key    string
		want   int
		wantOK bool
	}{
		{"tpep_pickup_datetime", 0, true},
		{"PULocationID", 1, true},
		{"fare_amount", 2, true},
		{"pulocationid", 0, false},
	}
	for _, tt := range tests {
		got, ok := idx[tt.key]
		if ok != tt.wantOK {
			t.Errorf("idx[%q] present = %v, want %v", tt.key, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("idx[%q] = %d, want %d", tt.key, got, tt.want)
		}
	}
}
