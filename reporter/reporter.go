// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package reporter implements the coverage log: an append-only CSV file
// with a fixed per-mode schema, written once per distinct block
// observation. The row format is stable output surface, consumed by
// downstream coverage tooling, and must not change shape within a run.
package reporter // import "github.com/blockcov/blockcov/reporter"

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/blockcov/blockcov/libcov"
)

// DefaultBufferSize is the write buffer size used when the configuration
// does not request one. Matches the usual C stdio BUFSIZ.
const DefaultBufferSize = 4096

// Record is one coverage row, captured at the first sighting of its key.
// Which fields are meaningful depends on the mode: ProcessName/PID/TID in
// process mode, ASID in asid mode; InKernel, PC and Size always.
type Record struct {
	ProcessName string
	PID         libcov.PID
	TID         libcov.TID
	ASID        libcov.ASID
	InKernel    bool
	PC          libcov.Address
	Size        uint32
}

// BlockReporter is the sink the recorder writes through.
type BlockReporter interface {
	// ReportBlock appends one row to the coverage log. A returned error
	// is a fatal I/O failure; there is no retry.
	ReportBlock(rec *Record) error
}

// headers holds the two-line preamble per mode: the mode name followed by
// the column header.
var headers = map[libcov.Mode]string{
	libcov.ProcessMode: "process\n" +
		"process name,process id,thread id,in kernel,block address,block size\n",
	libcov.AsidMode: "asid\n" +
		"asid,in kernel,block address,block size\n",
}

// flusher is what bufio.Writer provides on top of io.Writer.
type flusher interface {
	Flush() error
}

// Reporter writes coverage records in the schema of the mode it was opened
// with. It is not safe for concurrent use; the recorder serializes access
// when the host requires it.
type Reporter struct {
	mode   libcov.Mode
	out    io.Writer
	file   *os.File // nil when writing to a caller-supplied writer
	row    []byte   // reused between rows to keep the write path allocation-free
	err    error    // sticky first write error
	closed bool
}

var _ BlockReporter = (*Reporter)(nil)

// NewWriter creates a Reporter emitting to w without any additional
// buffering and writes the preamble for mode.
func NewWriter(w io.Writer, mode libcov.Mode) (*Reporter, error) {
	header, ok := headers[mode]
	if !ok {
		return nil, fmt.Errorf("invalid mode (%d)", mode)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return nil, fmt.Errorf("failed to write coverage log header: %w", err)
	}
	return &Reporter{
		mode: mode,
		out:  w,
		row:  make([]byte, 0, 128),
	}, nil
}

// Open creates (or truncates) the coverage log at path and writes the
// preamble for mode. bufferSize selects block-buffered output of that many
// bytes; 0 disables buffering so that every record reaches the file
// immediately.
func Open(path string, mode libcov.Mode, bufferSize uint) (*Reporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open coverage log %s: %w", path, err)
	}

	var w io.Writer = f
	if bufferSize > 0 {
		w = bufio.NewWriterSize(f, int(bufferSize))
	}

	r, err := NewWriter(w, mode)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// Mode returns the schema the reporter was opened with.
func (r *Reporter) Mode() libcov.Mode {
	return r.mode
}

func (r *Reporter) ReportBlock(rec *Record) error {
	if r.err != nil {
		return r.err
	}

	row := r.row[:0]
	switch r.mode {
	case libcov.ProcessMode:
		// Process and thread ID are in decimal, as that is the radix
		// used by most tools that produce human readable output.
		row = append(row, rec.ProcessName...)
		row = append(row, ',')
		row = strconv.AppendUint(row, uint64(rec.PID), 10)
		row = append(row, ',')
		row = strconv.AppendUint(row, uint64(rec.TID), 10)
	case libcov.AsidMode:
		row = append(row, "0x"...)
		row = strconv.AppendUint(row, uint64(rec.ASID), 16)
	}
	if rec.InKernel {
		row = append(row, ",1"...)
	} else {
		row = append(row, ",0"...)
	}
	row = append(row, ",0x"...)
	row = strconv.AppendUint(row, uint64(rec.PC), 16)
	row = append(row, ',')
	row = strconv.AppendUint(row, uint64(rec.Size), 10)
	row = append(row, '\n')
	r.row = row

	if _, err := r.out.Write(row); err != nil {
		r.err = fmt.Errorf("failed to write coverage record: %w", err)
		return r.err
	}
	return nil
}

// Close flushes buffered records and releases the file handle. It is safe
// to call on a partially initialized reporter and does nothing on repeated
// calls.
func (r *Reporter) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if f, ok := r.out.(flusher); ok {
		if err := f.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to flush coverage log: %w", err)
		}
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close coverage log: %w", err)
		}
	}
	return firstErr
}
