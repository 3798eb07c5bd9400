// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package procinfo_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockcov/blockcov/host"
	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/procinfo"
)

func TestParseFamily(t *testing.T) {
	tests := map[string]struct {
		input   string
		expect  procinfo.OSFamily
		wantErr bool
	}{
		"linux":   {input: "linux", expect: procinfo.FamilyLinux},
		"windows": {input: "windows", expect: procinfo.FamilyWindows},
		"darwin":  {input: "darwin", expect: procinfo.FamilyDarwin},
		"unknown": {input: "unknown", expect: procinfo.FamilyUnknown},
		"auto":    {input: "auto", expect: procinfo.DetectFamily()},
		"bogus":   {input: "plan9from", wantErr: true},
		"empty":   {input: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			family, err := procinfo.ParseFamily(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, family)
		})
	}
}

func TestFamilyKnown(t *testing.T) {
	assert.False(t, procinfo.FamilyUnknown.Known())
	assert.True(t, procinfo.FamilyLinux.Known())
	assert.True(t, procinfo.FamilyWindows.Known())
}

func TestHostResolverNeedsThreadSource(t *testing.T) {
	_, err := procinfo.NewHostResolver(nil, 128)
	require.Error(t, err)
}

func TestHostResolverOwnProcess(t *testing.T) {
	self := procinfo.ThreadInfo{PID: libcov.PID(os.Getpid()), TID: 1}
	resolver, err := procinfo.NewHostResolver(
		func(host.CPU) (procinfo.ThreadInfo, bool) { return self, true }, 128)
	require.NoError(t, err)

	ti, ok := resolver.CurrentThread(host.StaticCPU{})
	require.True(t, ok)
	assert.Equal(t, self, ti)

	// The test binary itself is the one process guaranteed to exist.
	name, ok := resolver.ProcessName(host.StaticCPU{})
	require.True(t, ok)
	assert.NotEmpty(t, name)

	// Second lookup is served from the cache and must agree.
	cached, ok := resolver.ProcessName(host.StaticCPU{})
	require.True(t, ok)
	assert.Equal(t, name, cached)
}

func TestHostResolverUntrackedContext(t *testing.T) {
	resolver, err := procinfo.NewHostResolver(
		func(host.CPU) (procinfo.ThreadInfo, bool) { return procinfo.ThreadInfo{}, false }, 128)
	require.NoError(t, err)

	_, ok := resolver.CurrentThread(host.StaticCPU{})
	assert.False(t, ok)
	_, ok = resolver.ProcessName(host.StaticCPU{})
	assert.False(t, ok)
}
