package graph

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/event"
)

// SetLinkContent forwards data to the FS-memory collaborator keyed by
// addr's packed address and emits CONTENT_CHANGED. Unlike
// GetLinkContent, this write-locks addr's monitor: it mutates the
// link's content, not just reads it.
func (s *Store) SetLinkContent(ctx context.Context, addr address.Addr, data []byte, searchable bool) error {
	if err := s.requireLinkForWrite(addr); err != nil {
		return err
	}

	if err := s.fsm.LinkString(addr.Pack(), data, searchable); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	s.events.EmitContext(ctx, addr, event.ContentChanged, address.Empty, address.Empty)

	return nil
}

// GetLinkContent returns a link's content, or nil if none is set.
func (s *Store) GetLinkContent(addr address.Addr) ([]byte, error) {
	if err := s.requireLink(addr); err != nil {
		return nil, err
	}

	data, ok, err := s.fsm.GetStringByLink(addr.Pack())
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	if !ok {
		return nil, nil
	}

	return data, nil
}

// FindLinksByExactContent returns every searchable link whose content
// equals data exactly.
func (s *Store) FindLinksByExactContent(data []byte) ([]address.Addr, error) {
	keys, err := s.fsm.GetLinksByString(data)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	return packedToAddrs(keys), nil
}

// FindLinksByContentSubstring returns every searchable link whose content (up to
// prefixLimit bytes, <=0 meaning unbounded) contains data as a
// substring.
func (s *Store) FindLinksByContentSubstring(data []byte, prefixLimit int) ([]address.Addr, error) {
	keys, err := s.fsm.GetLinksBySubstring(data, prefixLimit)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	return packedToAddrs(keys), nil
}

func (s *Store) requireLink(addr address.Addr) error {
	ticket := s.monitors.AcquireReadN(s.monitors.MonitorFor(addr))
	defer ticket.Release()

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		return errors.Wrap(ErrAddrNotValid, err.Error())
	}

	if !elem.Flags.Type.IsLink() {
		return ErrNotLink
	}

	return nil
}

// requireLinkForWrite is requireLink's write-locked counterpart, used
// by mutators of a link's content.
func (s *Store) requireLinkForWrite(addr address.Addr) error {
	ticket := s.monitors.AcquireWriteN(s.monitors.MonitorFor(addr))
	defer ticket.Release()

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		return errors.Wrap(ErrAddrNotValid, err.Error())
	}

	if !elem.Flags.Type.IsLink() {
		return ErrNotLink
	}

	return nil
}

func packedToAddrs(keys []uint64) []address.Addr {
	out := make([]address.Addr, len(keys))
	for i, k := range keys {
		out[i] = address.Unpack(k)
	}

	return out
}
