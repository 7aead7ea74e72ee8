package permissions

import (
	"fmt"
	"sort"

	"github.com/Blokmap/backend/internal/apperrors"
)

// ScopeKind identifies which permission catalog applies to a scope instance.
type ScopeKind string

const (
	ScopeInstitution ScopeKind = "institution"
	ScopeAuthority   ScopeKind = "authority"
	ScopeLocation    ScopeKind = "location"
)

// Valid reports whether k names a known scope kind.
func (k ScopeKind) Valid() bool {
	switch k {
	case ScopeInstitution, ScopeAuthority, ScopeLocation:
		return true
	}
	return false
}

// Capability names. Masks built from these bit positions are persisted in
// role rows, so positions are append-only: never renumber an existing flag.
const (
	InstAdministrator     = "administrator"
	InstAddAuthorities    = "add_authorities"
	InstDeleteAuthorities = "delete_authorities"
	InstManageMembers     = "manage_members"

	AuthAdministrator    = "administrator"
	AuthAddLocations     = "add_locations"
	AuthApproveLocations = "approve_locations"
	AuthDeleteLocations  = "delete_locations"
	AuthManageMembers    = "manage_members"

	LocAdministrator       = "administrator"
	LocManageLocations     = "manage_locations"
	LocManageImages        = "manage_images"
	LocManageOpeningTimes  = "manage_opening_times"
	LocManageMembers       = "manage_members"
	LocManageReservations  = "manage_reservations"
	LocConfirmReservations = "confirm_reservations"
	LocManageTags          = "manage_tags"
)

// maxBits is the widest catalog a scope kind may grow to; masks are uint64.
const maxBits = 64

var catalogs = map[ScopeKind]map[string]uint{
	ScopeInstitution: {
		InstAdministrator:     0,
		InstAddAuthorities:    1,
		InstDeleteAuthorities: 2,
		InstManageMembers:     3,
	},
	ScopeAuthority: {
		AuthAdministrator:    0,
		AuthAddLocations:     1,
		AuthApproveLocations: 2,
		AuthDeleteLocations:  3,
		AuthManageMembers:    4,
	},
	ScopeLocation: {
		LocAdministrator:       0,
		LocManageLocations:     1,
		LocManageImages:        2,
		LocManageOpeningTimes:  3,
		LocManageMembers:       4,
		LocManageReservations:  5,
		LocConfirmReservations: 6,
		LocManageTags:          7,
	},
}

func init() {
	for kind, catalog := range catalogs {
		if len(catalog) > maxBits {
			panic(fmt.Errorf("%w: %s catalog exceeds %d flags", apperrors.ErrCatalogOverflow, kind, maxBits))
		}
		seen := make(map[uint]string, len(catalog))
		for name, bit := range catalog {
			if bit >= maxBits {
				panic(fmt.Sprintf("permissions: %s/%s bit %d out of range", kind, name, bit))
			}
			if prev, ok := seen[bit]; ok {
				panic(fmt.Sprintf("permissions: %s bit %d assigned to both %s and %s", kind, bit, prev, name))
			}
			seen[bit] = name
		}
	}
}

// Bit returns the bit position of a named capability within a scope kind.
func Bit(kind ScopeKind, name string) (uint, error) {
	catalog, ok := catalogs[kind]
	if !ok {
		return 0, fmt.Errorf("%w: unknown scope kind %q", apperrors.ErrInvalidPermission, kind)
	}
	bit, ok := catalog[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a %s permission", apperrors.ErrInvalidPermission, name, kind)
	}
	return bit, nil
}

// Encode folds capability names into a bitmask for the given scope kind.
func Encode(kind ScopeKind, names []string) (uint64, error) {
	var mask uint64
	for _, name := range names {
		bit, err := Bit(kind, name)
		if err != nil {
			return 0, err
		}
		mask |= 1 << bit
	}
	return mask, nil
}

// Decode expands a mask into the capability names it grants, sorted by bit
// position. Bits outside the catalog are ignored.
func Decode(kind ScopeKind, mask uint64) []string {
	catalog := catalogs[kind]
	type entry struct {
		name string
		bit  uint
	}
	var granted []entry
	for name, bit := range catalog {
		if mask&(1<<bit) != 0 {
			granted = append(granted, entry{name, bit})
		}
	}
	sort.Slice(granted, func(i, j int) bool { return granted[i].bit < granted[j].bit })
	names := make([]string, len(granted))
	for i, e := range granted {
		names[i] = e.name
	}
	return names
}

// Has reports whether mask grants the named capability.
func Has(kind ScopeKind, mask uint64, name string) (bool, error) {
	bit, err := Bit(kind, name)
	if err != nil {
		return false, err
	}
	return mask&(1<<bit) != 0, nil
}

// Catalog returns the stable name -> bit mapping for a scope kind. The map is
// a copy; mutating it does not affect the catalog.
func Catalog(kind ScopeKind) map[string]uint {
	catalog := catalogs[kind]
	out := make(map[string]uint, len(catalog))
	for name, bit := range catalog {
		out[name] = bit
	}
	return out
}
