package nbuf

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	pageSizeOnce sync.Once
	pageSize     int
)

// PageSize returns the process page size, cached on first use.
func PageSize() int {
	pageSizeOnce.Do(func() {
		pageSize = os.Getpagesize()
	})
	return pageSize
}

// Page is a page-aligned anonymous mapping exactly PageSize() bytes long.
// Reactor implementations that want to hand the kernel page-aligned
// memory (e.g. for O_DIRECT-adjacent paths or registered io_uring
// buffers) allocate through here rather than through Owning.
type Page struct {
	buf []byte
}

// NewPage mmaps a fresh anonymous page.
func NewPage() (*Page, error) {
	buf, err := unix.Mmap(-1, 0, PageSize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &Page{buf: buf}, nil
}

// Bytes returns the mapped page.
func (p *Page) Bytes() []byte {
	return p.buf
}

// Ref returns a non-owning RefBuffer view over the page.
func (p *Page) Ref() RefBuffer {
	return RefBuffer(p.buf)
}

// Release unmaps the page. Using p after Release is undefined.
func (p *Page) Release() error {
	if p.buf == nil {
		return nil
	}
	err := unix.Munmap(p.buf)
	p.buf = nil
	return err
}
