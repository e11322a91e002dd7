// Package pager owns the database file and its in-memory page cache.
// Pages are lent out under scoped read or write leases; a write lease
// excludes every other lease across the pager (the one-dirty-page
// rule), and dirty pages flush to disk when the write lease is
// released.
package pager

import (
	"fmt"
	"io"
	"os"
	"sync"

	"litedb/pkg/dberr"
	"litedb/pkg/logging"
)

// PageNum is a 1-based page number, matching SQLite's numbering.
type PageNum uint32

// maxCachedPages bounds cache growth; unleased pages are evicted once
// the cache is full.
const maxCachedPages = 2048

// Pager manages one open database file.
type Pager struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	readOnly bool
	header   *Header

	pages      map[PageNum][]byte
	lastUsed   map[PageNum]uint64
	clock      uint64
	readCounts map[PageNum]int
	writePage  *PageNum
	closed     bool
}

// Open opens a database file, validates its header, and returns a
// Pager for it.
func Open(path string, readOnly bool) (*Pager, error) {
	flags := os.O_RDWR
	if readOnly {
		flags = os.O_RDONLY
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.Io, "Open", "pager")
	}

	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(file, headerBuf); err != nil {
		file.Close()
		return nil, dberr.Wrap(
			dberr.Newf(dberr.Format, "cannot read database header: %v", err),
			dberr.Format, "Open", "pager")
	}

	header, err := ParseHeader(headerBuf)
	if err != nil {
		file.Close()
		return nil, dberr.Wrap(err, dberr.Format, "Open", "pager")
	}

	p := &Pager{
		file:       file,
		path:       path,
		readOnly:   readOnly,
		header:     header,
		pages:      make(map[PageNum][]byte),
		lastUsed:   make(map[PageNum]uint64),
		readCounts: make(map[PageNum]int),
	}

	if header.PageCount == 0 {
		// Legacy files leave the in-header size zero; fall back to the
		// file length.
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, dberr.Wrap(err, dberr.Io, "Open", "pager")
		}
		header.PageCount = uint32(info.Size() / int64(header.PageSize))
	}

	logging.ForComponent("pager").
		WithField("path", path).
		WithField("page_size", header.PageSize).
		WithField("pages", header.PageCount).
		Debug("opened database file")

	return p, nil
}

// PageSize returns the page size in bytes.
func (p *Pager) PageSize() uint32 {
	return p.header.PageSize
}

// PageCount returns the number of pages in the database.
func (p *Pager) PageCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.header.PageCount
}

// Header returns the parsed file header.
func (p *Pager) Header() *Header {
	return p.header
}

// ReadPage grants a read lease on page n. Multiple simultaneous read
// leases are allowed; a live write lease excludes readers with Busy.
func (p *Pager) ReadPage(n PageNum) (*ReadLease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, dberr.New(dberr.Closed, "pager is closed").At("ReadPage", "pager")
	}
	if p.writePage != nil {
		return nil, dberr.Newf(dberr.Busy, "page %d is open for writing", *p.writePage).At("ReadPage", "pager")
	}

	data, err := p.fetchLocked(n)
	if err != nil {
		return nil, err
	}

	p.readCounts[n]++
	return &ReadLease{pager: p, num: n, data: data}, nil
}

// WritePage grants the pager's single write lease on page n. Fails
// with Busy while any other lease is outstanding, and with Unsupported
// on a read-only pager. The page flushes to disk when the lease is
// released.
func (p *Pager) WritePage(n PageNum) (*WriteLease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, dberr.New(dberr.Closed, "pager is closed").At("WritePage", "pager")
	}
	if p.readOnly {
		return nil, dberr.New(dberr.Unsupported, "database opened read-only").At("WritePage", "pager")
	}
	if p.writePage != nil {
		return nil, dberr.Newf(dberr.Busy, "page %d is already open for writing", *p.writePage).At("WritePage", "pager")
	}
	if total := p.totalReadLeasesLocked(); total > 0 {
		return nil, dberr.Newf(dberr.Busy, "%d read leases outstanding", total).At("WritePage", "pager")
	}

	data, err := p.fetchLocked(n)
	if err != nil {
		return nil, err
	}

	p.writePage = &n
	return &WriteLease{pager: p, num: n, data: data}, nil
}

// Close releases the file handle. Outstanding leases become invalid.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.pages = nil
	return p.file.Close()
}

// fetchLocked returns the cached bytes for page n, reading from disk
// on a miss. Caller holds p.mu.
func (p *Pager) fetchLocked(n PageNum) ([]byte, error) {
	if n < 1 || uint32(n) > p.header.PageCount {
		return nil, dberr.Newf(dberr.Io, "page %d out of range [1, %d]", n, p.header.PageCount)
	}

	p.clock++
	if data, ok := p.pages[n]; ok {
		p.lastUsed[n] = p.clock
		return data, nil
	}

	data := make([]byte, p.header.PageSize)
	offset := int64(n-1) * int64(p.header.PageSize)
	if _, err := p.file.ReadAt(data, offset); err != nil {
		return nil, dberr.Wrap(err, dberr.Io, "ReadPage", "pager").
			WithDetail("page %d at offset %d", n, offset)
	}

	p.evictLocked()
	p.pages[n] = data
	p.lastUsed[n] = p.clock
	return data, nil
}

// evictLocked drops the least recently used unleased pages while the
// cache is over capacity. Caller holds p.mu.
func (p *Pager) evictLocked() {
	for len(p.pages) >= maxCachedPages {
		var victim PageNum
		var oldest uint64
		found := false
		for n := range p.pages {
			if p.readCounts[n] > 0 || (p.writePage != nil && *p.writePage == n) {
				continue
			}
			if !found || p.lastUsed[n] < oldest {
				victim, oldest, found = n, p.lastUsed[n], true
			}
		}
		if !found {
			return
		}
		delete(p.pages, victim)
		delete(p.lastUsed, victim)
	}
}

func (p *Pager) totalReadLeasesLocked() int {
	total := 0
	for _, c := range p.readCounts {
		total += c
	}
	return total
}

// ReadLease is a scoped handle on a page's bytes for reading. Release
// returns the page to the cache; it is safe to call more than once.
type ReadLease struct {
	pager    *Pager
	num      PageNum
	data     []byte
	released bool
}

// PageNum returns the leased page's number.
func (l *ReadLease) PageNum() PageNum {
	return l.num
}

// Bytes returns the page contents. The slice is only valid until
// Release; callers that need data longer must copy.
func (l *ReadLease) Bytes() []byte {
	return l.data
}

// Release returns the lease. Idempotent.
func (l *ReadLease) Release() {
	if l.released {
		return
	}
	l.released = true

	p := l.pager
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readCounts[l.num] > 0 {
		p.readCounts[l.num]--
		if p.readCounts[l.num] == 0 {
			delete(p.readCounts, l.num)
		}
	}
}

// WriteLease is the pager's exclusive handle on one dirty page. The
// page is written back to disk when the lease is released.
type WriteLease struct {
	pager    *Pager
	num      PageNum
	data     []byte
	released bool
}

// PageNum returns the leased page's number.
func (l *WriteLease) PageNum() PageNum {
	return l.num
}

// Bytes returns the mutable page contents.
func (l *WriteLease) Bytes() []byte {
	return l.data
}

// Release flushes the page to disk and drops the write lease.
// Idempotent; only the first call flushes.
func (l *WriteLease) Release() error {
	if l.released {
		return nil
	}
	l.released = true

	p := l.pager
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writePage = nil
	if p.closed {
		return dberr.New(dberr.Closed, "pager closed before write lease release")
	}

	offset := int64(l.num-1) * int64(p.header.PageSize)
	if _, err := p.file.WriteAt(l.data, offset); err != nil {
		return dberr.Wrap(err, dberr.Io, "FlushPage", "pager").
			WithDetail("page %d at offset %d", l.num, offset)
	}
	if err := p.file.Sync(); err != nil {
		return dberr.Wrap(err, dberr.Io, "FlushPage", "pager")
	}

	logging.ForComponent("pager").
		WithField("page", l.num).
		Debug("flushed dirty page")
	return nil
}

// String identifies the pager for diagnostics.
func (p *Pager) String() string {
	return fmt.Sprintf("Pager(%s, %d pages of %dB)", p.path, p.header.PageCount, p.header.PageSize)
}
