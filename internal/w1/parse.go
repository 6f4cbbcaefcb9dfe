package w1

import (
	"fmt"
	"strconv"
	"strings"
)

// The w1_therm driver renders a measurement as two lines: the raw
// scratchpad with a CRC verdict, then the scratchpad again with the
// temperature appended as the 10th space-separated field:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
const (
	dataLineIndex   = 1
	tempFieldIndex  = 9
	tempFieldPrefix = "t="
)

// ParseError reports sensor content that deviates from the w1_slave
// format. Line carries the offending raw line.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("w1: parse sensor data: %s in %q", e.Reason, e.Line)
}

// parseMillidegrees extracts the millidegree temperature from raw
// w1_slave content. Fields are separated by single spaces; consecutive
// spaces produce empty fields rather than collapsing.
func parseMillidegrees(content string) (int64, error) {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) <= dataLineIndex {
		return 0, &ParseError{Line: content, Reason: "missing data line"}
	}
	line := lines[dataLineIndex]
	fields := strings.Split(line, " ")
	if len(fields) <= tempFieldIndex {
		return 0, &ParseError{
			Line:   line,
			Reason: fmt.Sprintf("want %d fields, got %d", tempFieldIndex+1, len(fields)),
		}
	}
	raw, ok := strings.CutPrefix(fields[tempFieldIndex], tempFieldPrefix)
	if !ok {
		return 0, &ParseError{
			Line:   line,
			Reason: fmt.Sprintf("field %d is not %q-prefixed", tempFieldIndex+1, tempFieldPrefix),
		}
	}
	milli, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ParseError{Line: line, Reason: fmt.Sprintf("bad millidegree value %q", raw)}
	}
	return milli, nil
}
