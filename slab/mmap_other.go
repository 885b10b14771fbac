// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package slab

const mmapSupported = false

var mapAnon = mmapAnon

func mmapAnon(int) ([]byte, error) {
	return nil, ErrMmapUnsupported
}

func unmap([]byte) error {
	return nil
}
