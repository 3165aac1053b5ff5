package handler

import (
	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

// --- Domain → HTTP response ---

func toCharacterResponse(c *domain.Character) characterResponse {
	classes := make([]string, 0, len(c.Classes))
	for _, cl := range c.Classes {
		classes = append(classes, cl.Name)
	}

	items := make([]itemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		if !it.AffectsStats() {
			continue
		}
		items = append(items, itemResponse{
			Name:          it.Name,
			ModifierStat:  it.Modifier.AffectedValue,
			ModifierValue: it.Modifier.Value,
		})
	}

	defenses := make([]defenseResponse, 0, len(c.Defenses))
	for _, d := range c.Defenses {
		defenses = append(defenses, defenseResponse{Type: string(d.Type), Defense: string(d.Defense)})
	}

	return characterResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Level:              c.Level,
		HitPoints:          c.HitPoints,
		CurrentHitPoints:   c.CurrentHitPoints,
		TemporaryHitPoints: c.TemporaryHitPoints,
		Classes:            classes,
		Stats: statsResponse{
			Strength:     c.Stats.Strength,
			Dexterity:    c.Stats.Dexterity,
			Constitution: c.Stats.Constitution,
			Intelligence: c.Stats.Intelligence,
			Wisdom:       c.Stats.Wisdom,
			Charisma:     c.Stats.Charisma,
		},
		ItemsAffectingStats: items,
		Defenses:            defenses,
	}
}

func toMutationResponse(r *ports.MutationResult) mutationResponse {
	return mutationResponse{
		CharacterID:        r.CharacterID,
		HitPoints:          r.Health.MaxHitPoints,
		CurrentHitPoints:   r.Health.CurrentHitPoints,
		TemporaryHitPoints: r.Health.TemporaryHitPoints,
		Replayed:           r.Replayed,
	}
}
