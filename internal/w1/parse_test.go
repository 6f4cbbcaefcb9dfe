package w1

import (
	"errors"
	"testing"
)

const goodContent = "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n" +
	"72 01 4b 46 7f ff 0e 10 57 t=23125\n"

func TestParseMillidegrees(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    int64
	}{
		{"driver sample", goodContent, 23125},
		{
			"negative",
			"c0 fe 4b 46 7f ff 0e 10 6d : crc=6d YES\n" +
				"c0 fe 4b 46 7f ff 0e 10 6d t=-1250\n",
			-1250,
		},
		{
			"zero",
			"00 00 4b 46 7f ff 0e 10 a1 : crc=a1 YES\n" +
				"00 00 4b 46 7f ff 0e 10 a1 t=0\n",
			0,
		},
		{
			"trailing fields ignored",
			"72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n" +
				"72 01 4b 46 7f ff 0e 10 57 t=21437 extra\n",
			21437,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMillidegrees(tc.content)
			if err != nil {
				t.Fatalf("parseMillidegrees: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestParseMillidegreesRejects(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"single line", "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n"},
		{"short data line", "head\n72 01 4b t=23125\n"},
		{"missing t= field", "head\n72 01 4b 46 7f ff 0e 10 57 x=23125\n"},
		{"fractional value", "head\n72 01 4b 46 7f ff 0e 10 57 t=23.5\n"},
		{"empty value", "head\n72 01 4b 46 7f ff 0e 10 57 t=\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseMillidegrees(tc.content)
			if err == nil {
				t.Fatal("parseMillidegrees accepted malformed content")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T, want *ParseError", err)
			}
		})
	}
}

func TestParseErrorCarriesOffendingLine(t *testing.T) {
	content := "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n" +
		"garbage line\n"
	_, err := parseMillidegrees(content)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T, want *ParseError", err)
	}
	if pe.Line != "garbage line" {
		t.Errorf("ParseError.Line = %q, want the offending data line", pe.Line)
	}
}
