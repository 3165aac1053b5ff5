package domain

// ApplyDamage returns the state after taking amount damage of the given kind.
//
// Immunity discards the damage before anything else, so temporary hit points
// are not spent on it. Resistance halves the amount rounding up. Temporary hit
// points absorb first and only the spillover reaches current hit points.
// Any non-negative amount is accepted, up to math.MaxInt.
func ApplyDamage(h HealthState, kind DamageKind, amount int) HealthState {
	if amount <= 0 || h.HasImmunityTo(kind) {
		return h
	}
	if h.HasResistanceTo(kind) {
		amount = amount/2 + amount%2
	}

	spillover := max(0, amount-h.TemporaryHitPoints)
	h.TemporaryHitPoints = max(0, h.TemporaryHitPoints-amount)
	h.CurrentHitPoints = max(0, h.CurrentHitPoints-spillover)
	return h.Normalize()
}

// ApplyHeal restores current hit points up to the maximum. Temporary hit points
// are never touched.
func ApplyHeal(h HealthState, amount int) HealthState {
	if amount <= 0 {
		return h
	}
	if amount >= h.MaxHitPoints-h.CurrentHitPoints {
		h.CurrentHitPoints = h.MaxHitPoints
	} else {
		h.CurrentHitPoints += amount
	}
	return h.Normalize()
}

// ApplyTemporaryHitPoints keeps the larger of the existing pool and the new
// grant; pools never stack.
func ApplyTemporaryHitPoints(h HealthState, amount int) HealthState {
	if amount > h.TemporaryHitPoints {
		h.TemporaryHitPoints = amount
	}
	return h.Normalize()
}

// Apply runs cmd against h. cmd must have passed Validate; an unknown command
// type leaves the state as is.
func Apply(h HealthState, cmd Command) HealthState {
	switch cmd.Type {
	case CommandDamage:
		return ApplyDamage(h, cmd.DamageKind, cmd.Amount)
	case CommandHeal:
		return ApplyHeal(h, cmd.Amount)
	case CommandGrantTemporaryHitPoints:
		return ApplyTemporaryHitPoints(h, cmd.Amount)
	}
	return h
}

// Changed reports whether a transformation moved any hit point value.
func Changed(before, after HealthState) bool {
	return before.CurrentHitPoints != after.CurrentHitPoints ||
		before.TemporaryHitPoints != after.TemporaryHitPoints
}
