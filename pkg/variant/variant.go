// Package variant derives leave-one-out and leave-group-out copies of a dataset.
package variant

import (
	"fmt"

	"github.com/ccollicutt/noisyavg/pkg/parser"
)

// Name identifies a dataset variant.
type Name string

const (
	// Original is the unmodified input dataset.
	Original Name = "original"

	// MinusOldest drops the first record holding the maximum age.
	MinusOldest Name = "minus_oldest"

	// MinusYoungest drops the first record holding the minimum age.
	MinusYoungest Name = "minus_youngest"
)

// DefaultDropAge is the age whose records are removed by the group variant.
const DefaultDropAge = 26

// MinusAge names the group variant that removes every record with the given age.
func MinusAge(age int) Name {
	return Name(fmt.Sprintf("minus_age%d", age))
}

// Names returns the variant names in analysis order for a group variant
// dropping dropAge.
func Names(dropAge int) []Name {
	return []Name{MinusOldest, MinusAge(dropAge), MinusYoungest}
}

// Mode selects how the group variant treats lines that did not parse.
type Mode string

const (
	// ModeIndex filters the full line list by record index, keeping
	// unparsed lines like the single-record variants do.
	ModeIndex Mode = "index"

	// ModeRecords writes only the raw text of kept records, dropping
	// every unparsed line.
	ModeRecords Mode = "records"
)

// Options configures variant generation.
type Options struct {
	// DropAge is the age removed by the group variant.
	DropAge int

	// Mode controls the group variant's handling of unparsed lines.
	Mode Mode
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{DropAge: DefaultDropAge, Mode: ModeIndex}
}

// Variant is one filtered copy of the input lines.
type Variant struct {
	Name Name

	// Lines are the surviving lines in their original relative order.
	Lines []string

	// Removed is the number of input lines absent from Lines.
	Removed int
}

// Set holds the three variants derived from one dataset.
type Set struct {
	MaxAge        int
	MinAge        int
	OldestIndex   int
	YoungestIndex int

	MinusOldest   Variant
	MinusAge      Variant
	MinusYoungest Variant
}

// All returns the variants in analysis order.
func (s *Set) All() []Variant {
	return []Variant{s.MinusOldest, s.MinusAge, s.MinusYoungest}
}

// Generate builds the variant set for lines and the records parsed from them.
// It returns parser.ErrNoParseableRecords when records is empty.
func Generate(lines []string, records []parser.Record, opts Options) (*Set, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("generating variants: %w", parser.ErrNoParseableRecords)
	}
	if opts.Mode == "" {
		opts.Mode = ModeIndex
	}

	set := &Set{
		MaxAge:        records[0].Age,
		MinAge:        records[0].Age,
		OldestIndex:   records[0].Index,
		YoungestIndex: records[0].Index,
	}

	// Strict comparisons keep the earliest index on ties.
	for _, r := range records[1:] {
		if r.Age > set.MaxAge {
			set.MaxAge = r.Age
			set.OldestIndex = r.Index
		}
		if r.Age < set.MinAge {
			set.MinAge = r.Age
			set.YoungestIndex = r.Index
		}
	}

	set.MinusOldest = withoutIndexes(MinusOldest, lines, map[int]bool{set.OldestIndex: true})
	set.MinusYoungest = withoutIndexes(MinusYoungest, lines, map[int]bool{set.YoungestIndex: true})

	switch opts.Mode {
	case ModeIndex:
		drop := make(map[int]bool)
		for _, r := range records {
			if r.Age == opts.DropAge {
				drop[r.Index] = true
			}
		}
		set.MinusAge = withoutIndexes(MinusAge(opts.DropAge), lines, drop)
	case ModeRecords:
		set.MinusAge = keptRecords(MinusAge(opts.DropAge), lines, records, opts.DropAge)
	default:
		return nil, fmt.Errorf("generating variants: unknown mode %q", opts.Mode)
	}

	return set, nil
}

func withoutIndexes(name Name, lines []string, drop map[int]bool) Variant {
	v := Variant{Name: name, Lines: make([]string, 0, len(lines))}
	for i, line := range lines {
		if drop[i] {
			continue
		}
		v.Lines = append(v.Lines, line)
	}
	v.Removed = len(lines) - len(v.Lines)
	return v
}

func keptRecords(name Name, lines []string, records []parser.Record, dropAge int) Variant {
	v := Variant{Name: name, Lines: make([]string, 0, len(records))}
	for _, r := range records {
		if r.Age == dropAge {
			continue
		}
		v.Lines = append(v.Lines, r.Raw)
	}
	v.Removed = len(lines) - len(v.Lines)
	return v
}
