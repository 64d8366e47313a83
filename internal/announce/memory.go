package announce

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemorySource serves announcements and code from memory. It is used by
// tests and offline tools.
type MemorySource struct {
	mu    sync.Mutex
	anns  []Announcement
	code  map[common.Address][]byte
	err   error
	calls int
}

// NewMemorySource creates a source holding anns.
func NewMemorySource(anns ...Announcement) *MemorySource {
	return &MemorySource{
		anns: append([]Announcement(nil), anns...),
		code: make(map[common.Address][]byte),
	}
}

// Add appends announcements.
func (m *MemorySource) Add(anns ...Announcement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anns = append(m.anns, anns...)
}

// SetCode sets the code returned for addr.
func (m *MemorySource) SetCode(addr common.Address, code []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code[addr] = code
}

// FailWith makes every following call return err. A nil err clears it.
func (m *MemorySource) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Announcements calls served.
func (m *MemorySource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Announcements returns the stored announcements for schemeID within
// [from, to].
func (m *MemorySource) Announcements(ctx context.Context, schemeID uint64, from, to uint64) ([]Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []Announcement
	for _, a := range m.anns {
		if a.BlockNumber < from || a.BlockNumber > to {
			continue
		}
		if a.SchemeID == nil || !a.SchemeID.IsUint64() || a.SchemeID.Uint64() != schemeID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// CodeAt returns the code set for addr, or nil.
func (m *MemorySource) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.code[addr], nil
}
