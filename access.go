package foreman

import (
	"github.com/TheBitDrifter/mask"
)

// Access declares which component types a system reads and writes. The
// planner proves systems non-conflicting from these declarations alone; a
// system touching a component it did not declare is an unchecked contract
// violation.
type Access struct {
	readMask  mask.Mask
	writeMask mask.Mask
	reads     []ComponentID
	writes    []ComponentID
}

// NewAccess creates an empty access declaration.
func NewAccess() Access {
	return Access{}
}

// Read declares read access to the given component types.
func (a Access) Read(ids ...ComponentID) Access {
	for _, id := range ids {
		if a.readMask.ContainsAll(singleMask(id)) {
			continue
		}
		a.readMask.Mark(uint32(id))
		a.reads = append(a.reads[:len(a.reads):len(a.reads)], id)
	}
	return a
}

// Write declares write access to the given component types.
func (a Access) Write(ids ...ComponentID) Access {
	for _, id := range ids {
		if a.writeMask.ContainsAll(singleMask(id)) {
			continue
		}
		a.writeMask.Mark(uint32(id))
		a.writes = append(a.writes[:len(a.writes):len(a.writes)], id)
	}
	return a
}

// Merge unions two access declarations.
func (a Access) Merge(b Access) Access {
	return a.Read(b.reads...).Write(b.writes...)
}

// ConflictsWith reports whether two systems may not share a stage: a write
// overlapping the other's writes or reads in either direction.
func (a Access) ConflictsWith(b Access) bool {
	if a.writeMask.ContainsAny(b.writeMask) {
		return true
	}
	if a.writeMask.ContainsAny(b.readMask) {
		return true
	}
	return a.readMask.ContainsAny(b.writeMask)
}

// Reads returns the declared read component IDs.
func (a Access) Reads() []ComponentID {
	return a.reads
}

// Writes returns the declared write component IDs.
func (a Access) Writes() []ComponentID {
	return a.writes
}

func singleMask(id ComponentID) mask.Mask {
	var m mask.Mask
	m.Mark(uint32(id))
	return m
}
