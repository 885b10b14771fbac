// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package slab

import "golang.org/x/sys/unix"

const mmapSupported = true

// mapAnon maps size bytes of zeroed private anonymous memory.
// Replaced in tests to exercise mapping failures.
var mapAnon = mmapAnon

func mmapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func unmap(mem []byte) error {
	return unix.Munmap(mem)
}
