// Package importer turns uploaded CSV files into records ready for storage.
//
// Parsing is separate from persistence: a reader returns the rows it could
// build, how many rows it skipped and one warning per rejected row. Only an
// unreadable stream is an error.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnreadable wraps failures to read the uploaded stream itself.
var ErrUnreadable = errors.New("unreadable csv")

// readRows calls fn for every data row after the header, with its 1-based
// line number in the file. Malformed lines are reported through warn.
func readRows(r io.Reader, warn func(string), fn func(line int, record []string)) error {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: header: %w", ErrUnreadable, err)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			warn(fmt.Sprintf("line %d: %v", perr.Line, perr.Err))
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		line, _ := cr.FieldPos(0)
		fn(line, record)
	}
}

// field returns the trimmed column i, or "" when the row is shorter.
func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
