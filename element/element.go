// Package element defines the tagged-union-style element slot: flags,
// type bitmask, incidence-list fields and the free-slot repurposing of
// those same fields.
package element

import "github.com/sc-machine-go/scmem/address"

// Type is a bitmask over element categories. Bits are partitioned into
// disjoint "category groups" (structural kind, permanence, valence,
// constancy and arc shape); CreateNode/CreateLink/CreateConnector only
// ever OR a caller-supplied subtype into the appropriate group, never
// across groups — see Mask and the group masks below.
type Type uint32

// Structural kind bits — exactly one must be set on every live element.
const (
	Node Type = 1 << iota
	Link
	Arc
)

// Arc shape bits, meaningful only when Arc is set.
const (
	ArcDirected Type = 1 << (iota + 8)
	EdgeCommon       // undirected edge: present in both endpoints' out- and in-lists
)

// Constancy bits.
const (
	Const Type = 1 << (iota + 12)
	Var
)

// Permanence bits.
const (
	Perm Type = 1 << (iota + 14)
	Temp
)

// Valence bits.
const (
	Pos Type = 1 << (iota + 16)
	Neg
	Fuzzy
)

// Role/structure bits.
const (
	Role Type = 1 << (iota + 20)
	NoRole
	Class
	Struct
	Abstract
	Material
	Tuple
)

// ArcMask isolates the structural-kind + arc-shape bits used to decide
// whether an element is a connector and, if so, whether it is directed.
const ArcMask = Arc | ArcDirected | EdgeCommon

// Mask isolates the structural-kind bits (Node|Link|Arc) that
// ChangeSubtype must never alter.
const Mask = Node | Link | Arc

// IsConnector reports whether t designates a binary connector (arc or edge).
func (t Type) IsConnector() bool { return t&Arc != 0 }

// IsEdge reports whether t designates an undirected edge.
func (t Type) IsEdge() bool { return t&ArcMask&EdgeCommon == EdgeCommon }

// IsNode reports whether t designates a node.
func (t Type) IsNode() bool { return t&Node != 0 }

// IsLink reports whether t designates a link.
func (t Type) IsLink() bool { return t&Link != 0 }

// Matches reports whether t satisfies filter f under the iterator's
// required-bits semantics: (f & t) == f.
func (t Type) Matches(f Type) bool {
	return f&t == f
}

// access-level bits. Only the low two bits carry storage-lifecycle
// meaning; the remainder are semantic permission bits on a live slot.
// Slot 0 of a segment is never handed out by the allocator; the
// segment-chain links it stands for are kept in internal/segment's
// Segment fields, not in this byte.
const (
	Exist           uint8 = 1 << 0
	RequestDeletion uint8 = 1 << 1
)

// Flags is the element's type + access-level pair.
type Flags struct {
	Type         Type
	AccessLevels uint8
}

// Live reports whether the ELEMENT_EXIST bit is set.
func (f Flags) Live() bool { return f.AccessLevels&Exist != 0 }

// DeletionRequested reports whether REQUEST_DELETION has been set.
func (f Flags) DeletionRequested() bool { return f.AccessLevels&RequestDeletion != 0 }

// Element is the live contents of one slot. Connector-only fields are
// zero on node/link elements.
type Element struct {
	Flags Flags

	// Connector-only.
	Begin   address.Addr
	End     address.Addr
	NextOut address.Addr
	PrevOut address.Addr
	NextIn  address.Addr
	PrevIn  address.Addr

	// Second linkage pair, used only by undirected edges (EdgeCommon)
	// with Begin != End: an edge sits in both endpoints' out- AND
	// in-lists, which needs two independent link pairs since the first
	// pair already threads Begin's out-list and End's in-list. NextOut2/
	// PrevOut2 thread End's out-list; NextIn2/PrevIn2 thread Begin's
	// in-list. Zero on every directed arc and on edges with Begin==End.
	NextOut2 address.Addr
	PrevOut2 address.Addr
	NextIn2  address.Addr
	PrevIn2  address.Addr

	// Incidence bookkeeping for every element (node, link or connector
	// endpoint).
	FirstOutArc     address.Addr
	FirstInArc      address.Addr
	OutputArcsCount uint32
	InputArcsCount  uint32

	RefCount uint32
}

// OutNext returns the out-list successor of this connector as seen from
// owner's out-list (owner must be Begin, or End on an edge with
// Begin != End).
func (e *Element) OutNext(owner address.Addr) address.Addr {
	if owner == e.Begin {
		return e.NextOut
	}

	return e.NextOut2
}

// OutPrev is OutNext's predecessor counterpart.
func (e *Element) OutPrev(owner address.Addr) address.Addr {
	if owner == e.Begin {
		return e.PrevOut
	}

	return e.PrevOut2
}

// SetOutNext sets the out-list successor as seen from owner.
func (e *Element) SetOutNext(owner, v address.Addr) {
	if owner == e.Begin {
		e.NextOut = v
	} else {
		e.NextOut2 = v
	}
}

// SetOutPrev sets the out-list predecessor as seen from owner.
func (e *Element) SetOutPrev(owner, v address.Addr) {
	if owner == e.Begin {
		e.PrevOut = v
	} else {
		e.PrevOut2 = v
	}
}

// InNext returns the in-list successor of this connector as seen from
// owner's in-list (owner must be End, or Begin on an edge with
// Begin != End).
func (e *Element) InNext(owner address.Addr) address.Addr {
	if owner == e.End {
		return e.NextIn
	}

	return e.NextIn2
}

// InPrev is InNext's predecessor counterpart.
func (e *Element) InPrev(owner address.Addr) address.Addr {
	if owner == e.End {
		return e.PrevIn
	}

	return e.PrevIn2
}

// SetInNext sets the in-list successor as seen from owner.
func (e *Element) SetInNext(owner, v address.Addr) {
	if owner == e.End {
		e.NextIn = v
	} else {
		e.NextIn2 = v
	}
}

// SetInPrev sets the in-list predecessor as seen from owner.
func (e *Element) SetInPrev(owner, v address.Addr) {
	if owner == e.End {
		e.PrevIn = v
	} else {
		e.PrevIn2 = v
	}
}

// Slot is the on-disk/in-memory representation of a segment cell: either
// a live Element or a free-list link to the next free offset in the
// segment. The discriminant is explicit rather than overloading
// Element.Flags.Type, keeping the snapshot serializer (fsmem) honest
// about which representation is active.
type Slot struct {
	Free     bool
	NextFree uint32 // valid iff Free; 0 terminates the chain
	Elem     Element
}
