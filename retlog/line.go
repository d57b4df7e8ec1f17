package retlog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var hdrPrefix = []byte("--- ")

// marshalLine serializes a record in the format:
//
//	--- ${size} ${timestamp_in_unix_epoch_ms} ${name}\n
//	${data}\n
//
// The trailing newline is only added if data doesn't end with one.
func marshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	wb.Reset()
	wb.Write(hdrPrefix)
	dataLen := len(d)
	wb.WriteString(strconv.Itoa(dataLen))
	wb.WriteByte(' ')
	wb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	if dataLen > 0 {
		wb.Write(d)
		if d[dataLen-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}

// Record is an entry read back from an event file
type Record struct {
	Name      string
	Timestamp time.Time
	// toon-encoded key/value pairs for events, text for log lines
	Data []byte
}

func parseHeader(hdr []byte) (size int, rec Record, err error) {
	rest := bytes.TrimPrefix(hdr, hdrPrefix)
	rest = bytes.TrimSuffix(rest, []byte{'\n'})
	parts := bytes.SplitN(rest, []byte{' '}, 3)
	if len(parts) < 2 {
		return 0, rec, fmt.Errorf("unexpected header '%s'", string(hdr))
	}
	size, err = strconv.Atoi(string(parts[0]))
	if err != nil || size < 0 {
		return 0, rec, fmt.Errorf("unexpected header '%s'", string(hdr))
	}
	ms, err := strconv.ParseInt(string(parts[1]), 10, 64)
	if err != nil {
		return 0, rec, fmt.Errorf("unexpected header '%s'", string(hdr))
	}
	rec.Timestamp = time.UnixMilli(ms)
	if len(parts) > 2 {
		rec.Name = string(parts[2])
	}
	return size, rec, nil
}

// ReadRecords reads all records written by a Logger
func ReadRecords(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	var res []Record
	for {
		hdr, err := br.ReadBytes('\n')
		if err == io.EOF && len(hdr) == 0 {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		size, rec, err := parseHeader(hdr)
		if err != nil {
			return nil, err
		}
		rec.Data = make([]byte, size)
		if _, err = io.ReadFull(br, rec.Data); err != nil {
			return nil, err
		}
		// for readability data might be padded with '\n'
		if size > 0 && rec.Data[size-1] != '\n' {
			if _, err = br.Discard(1); err != nil {
				return nil, err
			}
		}
		res = append(res, rec)
	}
}

// ReadRecordsFromFile reads all records in a file written by a Logger
func ReadRecordsFromFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}
