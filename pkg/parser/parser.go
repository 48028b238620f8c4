package parser

import (
	"strconv"
	"strings"
)

// ParseRecords turns raw lines into records.
// Blank lines and lines whose first field is not an integer are skipped.
// Record indexes refer to positions in lines, so the result may be sparse.
func ParseRecords(lines []string) []Record {
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		age, ok := ParseAge(line)
		if !ok {
			continue
		}
		records = append(records, Record{Index: i, Age: age, Raw: line})
	}
	return records
}

// ParseAge extracts the integer age from the first comma-separated field of line.
//
// The field is read like a C stoi call: an optional sign followed by at least
// one digit, with anything after the digits ignored ("30.5" is 30). Values
// outside the 32-bit range are rejected.
func ParseAge(line string) (int, bool) {
	trimmed := strings.TrimFunc(line, isSpace)
	if trimmed == "" {
		return 0, false
	}

	token, _, _ := strings.Cut(trimmed, ",")
	token = strings.TrimFunc(token, isSpace)

	end := 0
	if end < len(token) && (token[end] == '+' || token[end] == '-') {
		end++
	}
	digits := end
	for end < len(token) && token[end] >= '0' && token[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	age, err := strconv.ParseInt(token[:end], 10, 32)
	if err != nil {
		return 0, false
	}
	return int(age), true
}

// Parse builds a Dataset from lines read from source.
func Parse(source string, lines []string) *Dataset {
	return &Dataset{
		Source:  source,
		Lines:   lines,
		Records: ParseRecords(lines),
	}
}

// isSpace reports the ASCII whitespace of C isspace. Unicode spaces such as
// NBSP are part of the field and make it unparseable.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
