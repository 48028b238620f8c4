// Package parser provides dataset reading and record parsing functionality.
package parser

import "errors"

var (
	// ErrUnreadableInput is returned when an input file is missing or cannot be opened.
	ErrUnreadableInput = errors.New("unreadable input")

	// ErrNoParseableRecords is returned when no line of a dataset yields a record.
	ErrNoParseableRecords = errors.New("no parseable records")

	// ErrOutputWrite is returned when an output file cannot be created or written.
	ErrOutputWrite = errors.New("output write failure")
)

// Record is a single parsed dataset line.
type Record struct {
	// Index is the 0-based position of the line among all input lines,
	// including lines that did not parse.
	Index int

	// Age is the integer parsed from the first comma-separated field.
	Age int

	// Raw is the original, untrimmed line.
	Raw string
}

// Dataset pairs the raw lines of an input with the records parsed from them.
type Dataset struct {
	// Source is the file path the lines came from.
	Source string

	// Lines holds every line of the input in order.
	Lines []string

	// Records holds the parsed subset of Lines in order.
	Records []Record
}

// Ages returns the age of every record in order.
func (d *Dataset) Ages() []int {
	ages := make([]int, len(d.Records))
	for i, r := range d.Records {
		ages[i] = r.Age
	}
	return ages
}

// Skipped returns the number of lines that did not produce a record.
func (d *Dataset) Skipped() int {
	return len(d.Lines) - len(d.Records)
}
