// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package reporter_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/reporter"
)

func TestHeaders(t *testing.T) {
	tests := map[string]struct {
		mode   libcov.Mode
		expect string
	}{
		"process": {
			mode: libcov.ProcessMode,
			expect: "process\n" +
				"process name,process id,thread id,in kernel,block address,block size\n",
		},
		"asid": {
			mode: libcov.AsidMode,
			expect: "asid\n" +
				"asid,in kernel,block address,block size\n",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := reporter.NewWriter(&buf, tc.mode)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, buf.String())
		})
	}
}

func TestProcessModeRow(t *testing.T) {
	var buf bytes.Buffer
	r, err := reporter.NewWriter(&buf, libcov.ProcessMode)
	require.NoError(t, err)

	require.NoError(t, r.ReportBlock(&reporter.Record{
		ProcessName: "bash",
		PID:         1234,
		TID:         1237,
		InKernel:    false,
		PC:          0xdeadbeef,
		Size:        17,
	}))
	require.NoError(t, r.ReportBlock(&reporter.Record{
		ProcessName: "(kernel)",
		PID:         0,
		TID:         0,
		InKernel:    true,
		PC:          0xffff800000100000,
		Size:        4,
	}))

	expect := "process\n" +
		"process name,process id,thread id,in kernel,block address,block size\n" +
		"bash,1234,1237,0,0xdeadbeef,17\n" +
		"(kernel),0,0,1,0xffff800000100000,4\n"
	assert.Equal(t, expect, buf.String())
}

func TestAsidModeRow(t *testing.T) {
	var buf bytes.Buffer
	r, err := reporter.NewWriter(&buf, libcov.AsidMode)
	require.NoError(t, err)

	require.NoError(t, r.ReportBlock(&reporter.Record{
		ASID:     0x5,
		InKernel: false,
		PC:       0x1000,
		Size:     16,
	}))

	expect := "asid\n" +
		"asid,in kernel,block address,block size\n" +
		"0x5,0,0x1000,16\n"
	assert.Equal(t, expect, buf.String())
}

func TestOpenUnbuffered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.csv")
	r, err := reporter.Open(path, libcov.AsidMode, 0)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.ReportBlock(&reporter.Record{ASID: 1, PC: 0x40, Size: 2}))

	// With buffering disabled the record must be on disk before Close.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0x1,0,0x40,2\n")
}

func TestOpenBufferedFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.csv")
	r, err := reporter.Open(path, libcov.AsidMode, 1<<20)
	require.NoError(t, err)

	require.NoError(t, r.ReportBlock(&reporter.Record{ASID: 1, PC: 0x40, Size: 2}))

	// A one-row write sits in the 1 MiB buffer until Close.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, r.Close())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "asid\nasid,in kernel,block address,block size\n0x1,0,0x40,2\n",
		string(data))
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.csv")
	r, err := reporter.Open(path, libcov.ProcessMode, reporter.DefaultBufferSize)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestOpenBadPath(t *testing.T) {
	_, err := reporter.Open(filepath.Join(t.TempDir(), "no", "such", "dir", "x.csv"),
		libcov.AsidMode, 0)
	require.Error(t, err)
}

type failingWriter struct{ failed bool }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.failed {
		return 0, os.ErrClosed
	}
	// Let the header through, fail everything after.
	w.failed = true
	return len(p), nil
}

func TestWriteErrorIsSticky(t *testing.T) {
	r, err := reporter.NewWriter(&failingWriter{}, libcov.AsidMode)
	require.NoError(t, err)

	rec := &reporter.Record{ASID: 1, PC: 0x40, Size: 2}
	first := r.ReportBlock(rec)
	require.Error(t, first)
	assert.Equal(t, first, r.ReportBlock(rec))
}
