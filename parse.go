package hostbench

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DateTimeLayout = "2006-01-02 15:04:05"
	lineLength     = 3
)

var (
	ErrInvalidLineLen = errors.New("invalid line length, must be equal to 3")
	ErrEmptyHostname  = errors.New("empty host name")
	ErrInvalidHeader  = errors.New("invalid header")
	ErrInvalidWindow  = errors.New("start time is after end time")
)

func parseLine(line []string) (hostname string, window TimeWindow, err error) {
	if len(line) != lineLength {
		err = ErrInvalidLineLen

		return
	}

	hostname = line[0]
	if hostname == "" {
		err = ErrEmptyHostname

		return
	}

	window.Start, err = time.Parse(DateTimeLayout, line[1])
	if err != nil {
		err = errors.Wrapf(err, "invalid start time value %v", line[1])

		return
	}

	window.End, err = time.Parse(DateTimeLayout, line[2])
	if err != nil {
		err = errors.Wrapf(err, "invalid end time value %v", line[2])

		return
	}

	if window.Start.After(window.End) {
		err = errors.Wrapf(ErrInvalidWindow, "%s > %s", line[1], line[2])
	}

	return
}

const expectedHeaderStr = "hostname,start_time,end_time"

func validateHeader(line []string) error {
	givenHeaderStr := strings.Join(line, ",")
	if givenHeaderStr == expectedHeaderStr {
		return nil
	}

	return errors.Wrapf(ErrInvalidHeader, "expected %q but got %q", expectedHeaderStr, givenHeaderStr)
}

// ParseCsv calls cb for every record after the header. Broken records are
// reported through cb with their line number and parsing continues. Errors
// of the underlying reader stop parsing.
func ParseCsv(reader io.Reader, cb func(err error, host string, window TimeWindow)) error {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	first, err := csvReader.Read()
	if err != nil {
		return errors.Wrap(err, "could not read header")
	}

	err = validateHeader(first)
	if err != nil {
		return err
	}

	lineNum := 1

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		lineNum++

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			cb(errors.Wrapf(err, "record on line %d", lineNum), "", TimeWindow{})

			continue
		}

		if err != nil {
			return errors.Wrapf(err, "could not read line %d", lineNum)
		}

		host, window, err := parseLine(record)
		if err != nil {
			cb(errors.Wrapf(err, "record on line %d", lineNum), host, window)

			continue
		}

		cb(nil, host, window)
	}

	return nil
}

// ReadCsv opens file, or returns stdin for "-".
func ReadCsv(file string) (io.ReadCloser, error) {
	if file == "-" {
		return os.Stdin, nil
	}

	reader, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "could not open csv file")
	}

	return reader, nil
}
