// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// The free-list is a Treiber stack threaded through the element links.
// The top word carries a 32-bit tag bumped on every change, so a pop that
// read a stale next link cannot succeed after the top was popped and
// pushed again (ABA).

// push links h on top of the free-list. l is the link of h.
func (p *Pool[T]) push(h Handle, l *atomix.Uint64) {
	sw := spin.Wait{}
	for {
		top := p.free.LoadAcquire()
		l.StoreRelease(top & handleMask)
		if p.free.CompareAndSwapAcqRel(top, (top&^handleMask)+tagInc|uint64(h)) {
			return
		}
		sw.Once()
	}
}

// pop unlinks the top of the free-list. Returns Nil if the list is empty.
func (p *Pool[T]) pop() Handle {
	sw := spin.Wait{}
	for {
		top := p.free.LoadAcquire()
		h := Handle(top & handleMask)
		if h == Nil {
			return Nil
		}
		next := p.link(h).LoadAcquire()
		if p.free.CompareAndSwapAcqRel(top, (top&^handleMask)+tagInc|(next&handleMask)) {
			return h
		}
		sw.Once()
	}
}
