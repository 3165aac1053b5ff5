package domain

// HealthState is the part of a character the mutation engine works on.
//
// Revision belongs to the store: it is carried through every transformation
// untouched and compared on save to detect a concurrent writer.
type HealthState struct {
	MaxHitPoints       int
	CurrentHitPoints   int
	TemporaryHitPoints int
	Defenses           []Defense
	Revision           int64
}

// HasImmunityTo reports whether the state negates kind entirely.
func (h HealthState) HasImmunityTo(kind DamageKind) bool {
	return h.hasDefense(kind, DefenseImmunity)
}

// HasResistanceTo reports whether the state halves kind.
func (h HealthState) HasResistanceTo(kind DamageKind) bool {
	return h.hasDefense(kind, DefenseResistance)
}

func (h HealthState) hasDefense(kind DamageKind, defense DefenseKind) bool {
	for _, d := range h.Defenses {
		if d.Type == kind && d.Defense == defense {
			return true
		}
	}
	return false
}

// Normalize clamps the hit point fields back into their valid ranges:
// 0 <= current <= max and temp >= 0.
func (h HealthState) Normalize() HealthState {
	if h.MaxHitPoints < 0 {
		h.MaxHitPoints = 0
	}
	if h.CurrentHitPoints > h.MaxHitPoints {
		h.CurrentHitPoints = h.MaxHitPoints
	}
	if h.CurrentHitPoints < 0 {
		h.CurrentHitPoints = 0
	}
	if h.TemporaryHitPoints < 0 {
		h.TemporaryHitPoints = 0
	}
	return h
}

// Valid reports whether the invariants hold.
func (h HealthState) Valid() bool {
	return h.MaxHitPoints >= 0 &&
		h.CurrentHitPoints >= 0 &&
		h.CurrentHitPoints <= h.MaxHitPoints &&
		h.TemporaryHitPoints >= 0
}
