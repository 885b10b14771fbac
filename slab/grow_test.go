// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowFailure(t *testing.T) {
	if !mmapSupported {
		t.Skip("skip: no anonymous mappings")
	}

	p, err := New[uint64](4, Mmap)
	require.NoError(t, err)
	defer p.Close()

	for range 4 {
		_, _, err := p.Allocate()
		require.NoError(t, err)
	}

	errNoMem := errors.New("cannot allocate memory")
	mapAnon = func(int) ([]byte, error) { return nil, errNoMem }
	defer func() { mapAnon = mmapAnon }()

	for range 3 {
		h, elem, err := p.Allocate()
		require.ErrorIs(t, err, ErrMapFailed)
		require.ErrorIs(t, err, errNoMem)
		assert.Equal(t, Nil, h)
		assert.Nil(t, elem)
	}

	st := p.Stats()
	assert.Equal(t, 1, st.Blocks)
	assert.Equal(t, uint64(4), st.Fresh, "failed allocations issue no handle")
	assert.Equal(t, uint64(4), st.Live)

	mapAnon = mmapAnon
	h, elem, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), *elem)
	assert.Equal(t, 2, p.Blocks())

	st = p.Stats()
	assert.Equal(t, uint64(5), st.Fresh)
	assert.Equal(t, uint64(5), st.Live)

	p.Deallocate(h)
	st = p.Stats()
	assert.Equal(t, uint64(4), st.Live)
	assert.Equal(t, uint64(1), st.Free)
}
