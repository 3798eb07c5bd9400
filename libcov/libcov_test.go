// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package libcov

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKeyEquality(t *testing.T) {
	tests := map[string]struct {
		a, b  RecordKey
		equal bool
	}{
		"identical":         {NewRecordKey(5, 0x1000), NewRecordKey(5, 0x1000), true},
		"different context": {NewRecordKey(5, 0x1000), NewRecordKey(6, 0x1000), false},
		"different pc":      {NewRecordKey(5, 0x1000), NewRecordKey(5, 0x1010), false},
		"swapped fields":    {NewRecordKey(5, 0x1000), NewRecordKey(0x1000, 5), false},
		"zero value":        {RecordKey{}, NewRecordKey(0, 0), true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.equal, tc.a == tc.b)
			if tc.equal {
				assert.Equal(t, tc.a.Hash(), tc.b.Hash())
			}
		})
	}
}

func TestRecordKeyHashOrderSensitive(t *testing.T) {
	a := NewRecordKey(1, 2)
	b := NewRecordKey(2, 1)
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestRecordKeyHashSpread(t *testing.T) {
	// Sequential block addresses under a handful of contexts is the
	// typical input shape. A 64-bit hash over that input must not
	// collide at all at this scale.
	seen := make(map[uint64]RecordKey)
	for ctx := uint64(0); ctx < 16; ctx++ {
		for pc := uint64(0x400000); pc < 0x400000+4096; pc += 4 {
			key := NewRecordKey(ctx, Address(pc))
			h := key.Hash()
			prev, collision := seen[h]
			require.False(t, collision, "hash collision between %v and %v", prev, key)
			seen[h] = key
		}
	}
}

func TestRecordKeyHash32(t *testing.T) {
	key := NewRecordKey(42, 0xdeadbeef)
	assert.Equal(t, uint32(key.Hash()), key.Hash32())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "process", ProcessMode.String())
	assert.Equal(t, "asid", AsidMode.String())
}

func TestParseMode(t *testing.T) {
	tests := map[string]struct {
		input   string
		expect  Mode
		wantErr bool
	}{
		"process":    {input: "process", expect: ProcessMode},
		"asid":       {input: "asid", expect: AsidMode},
		"empty":      {input: "", wantErr: true},
		"unknown":    {input: "thread", wantErr: true},
		"upper case": {input: "PROCESS", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := ParseMode(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, m)
		})
	}
}

func TestSetToSlice(t *testing.T) {
	s := Set[RecordKey]{
		NewRecordKey(1, 2): {},
		NewRecordKey(3, 4): {},
	}
	assert.ElementsMatch(t,
		[]RecordKey{NewRecordKey(1, 2), NewRecordKey(3, 4)}, s.ToSlice())
}
