package permissions

import (
	"errors"
	"testing"

	"github.com/Blokmap/backend/internal/apperrors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	names := []string{LocManageOpeningTimes, LocManageTags, LocAdministrator}

	mask, err := Encode(ScopeLocation, names)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded := Decode(ScopeLocation, mask)
	if len(decoded) != 3 {
		t.Fatalf("expected 3 names, got %v", decoded)
	}
	// Decode orders by bit position.
	want := []string{LocAdministrator, LocManageOpeningTimes, LocManageTags}
	for i, name := range want {
		if decoded[i] != name {
			t.Errorf("decoded[%d] = %q, want %q", i, decoded[i], name)
		}
	}
}

func TestEncodeUnknownName(t *testing.T) {
	_, err := Encode(ScopeInstitution, []string{"manage_opening_times"})
	if !errors.Is(err, apperrors.ErrInvalidPermission) {
		t.Fatalf("expected ErrInvalidPermission, got %v", err)
	}
}

func TestEncodeUnknownScopeKind(t *testing.T) {
	_, err := Encode(ScopeKind("galaxy"), []string{"administrator"})
	if !errors.Is(err, apperrors.ErrInvalidPermission) {
		t.Fatalf("expected ErrInvalidPermission, got %v", err)
	}
}

func TestHas(t *testing.T) {
	mask, err := Encode(ScopeLocation, []string{LocManageLocations, LocManageTags})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		want bool
	}{
		{LocManageTags, true},
		{LocManageLocations, true},
		{LocManageOpeningTimes, false},
		{LocAdministrator, false},
	}
	for _, tc := range cases {
		got, err := Has(ScopeLocation, mask, tc.name)
		if err != nil {
			t.Fatalf("Has(%s): %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("Has(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDecodeIgnoresUndefinedBits(t *testing.T) {
	mask := uint64(1)<<0 | uint64(1)<<40
	decoded := Decode(ScopeInstitution, mask)
	if len(decoded) != 1 || decoded[0] != InstAdministrator {
		t.Fatalf("expected only administrator, got %v", decoded)
	}
}

func TestCatalogStability(t *testing.T) {
	// Bit positions are persisted in role masks; renumbering them would
	// silently change what stored roles grant.
	fixed := map[ScopeKind]map[string]uint{
		ScopeInstitution: {"administrator": 0, "add_authorities": 1, "delete_authorities": 2, "manage_members": 3},
		ScopeAuthority:   {"administrator": 0, "add_locations": 1, "approve_locations": 2, "delete_locations": 3, "manage_members": 4},
		ScopeLocation: {
			"administrator": 0, "manage_locations": 1, "manage_images": 2,
			"manage_opening_times": 3, "manage_members": 4, "manage_reservations": 5,
			"confirm_reservations": 6, "manage_tags": 7,
		},
	}
	for kind, want := range fixed {
		got := Catalog(kind)
		if len(got) != len(want) {
			t.Errorf("%s catalog has %d flags, want %d", kind, len(got), len(want))
		}
		for name, bit := range want {
			if got[name] != bit {
				t.Errorf("%s/%s assigned bit %d, want %d", kind, name, got[name], bit)
			}
		}
	}
}
