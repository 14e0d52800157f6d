package graph

import (
	"github.com/pkg/errors"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
)

// IsElement reports whether addr currently resolves to a live element.
func (s *Store) IsElement(addr address.Addr) bool {
	return s.pool.IsElement(addr)
}

// GetType returns addr's full type bitmask.
func (s *Store) GetType(addr address.Addr) (element.Type, error) {
	ticket := s.monitors.AcquireReadN(s.monitors.MonitorFor(addr))
	defer ticket.Release()

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		return 0, errors.Wrap(ErrAddrNotValid, err.Error())
	}

	return elem.Flags.Type, nil
}

// ChangeSubtype replaces addr's decorating type bits, leaving the
// structural-kind bits (NODE/LINK/ARC) untouched. subtype must not set
// any of those bits itself.
func (s *Store) ChangeSubtype(addr address.Addr, subtype element.Type) error {
	if subtype&element.Mask != 0 {
		return errors.Wrap(ErrInvalidType, "cannot alter structural-kind bits")
	}

	ticket := s.monitors.AcquireWriteN(s.monitors.MonitorFor(addr))
	defer ticket.Release()

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		return errors.Wrap(ErrAddrNotValid, err.Error())
	}

	elem.Flags.Type = elem.Flags.Type&element.Mask | subtype

	return nil
}

// GetArcBegin returns a connector's begin endpoint.
func (s *Store) GetArcBegin(addr address.Addr) (address.Addr, error) {
	begin, _, _, err := s.GetArcInfo(addr)
	return begin, err
}

// GetArcEnd returns a connector's end endpoint.
func (s *Store) GetArcEnd(addr address.Addr) (address.Addr, error) {
	_, end, _, err := s.GetArcInfo(addr)
	return end, err
}

// GetArcInfo returns a connector's begin, end and type in one locked
// read.
func (s *Store) GetArcInfo(addr address.Addr) (address.Addr, address.Addr, element.Type, error) {
	ticket := s.monitors.AcquireReadN(s.monitors.MonitorFor(addr))
	defer ticket.Release()

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		return address.Empty, address.Empty, 0, errors.Wrap(ErrAddrNotValid, err.Error())
	}

	if !elem.Flags.Type.IsConnector() {
		return address.Empty, address.Empty, 0, ErrNotConnector
	}

	return elem.Begin, elem.End, elem.Flags.Type, nil
}

// GetElementOutputArcsCount returns the number of connectors with addr
// as their (effective) begin side.
func (s *Store) GetElementOutputArcsCount(addr address.Addr) (uint32, error) {
	ticket := s.monitors.AcquireReadN(s.monitors.MonitorFor(addr))
	defer ticket.Release()

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		return 0, errors.Wrap(ErrAddrNotValid, err.Error())
	}

	return elem.OutputArcsCount, nil
}

// GetElementInputArcsCount returns the number of connectors with addr
// as their (effective) end side.
func (s *Store) GetElementInputArcsCount(addr address.Addr) (uint32, error) {
	ticket := s.monitors.AcquireReadN(s.monitors.MonitorFor(addr))
	defer ticket.Release()

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		return 0, errors.Wrap(ErrAddrNotValid, err.Error())
	}

	return elem.InputArcsCount, nil
}
