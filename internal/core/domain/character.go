package domain

import (
	"fmt"
	"strings"
)

// DamageKind identifies the type of harm dealt by an attack.
type DamageKind string

const (
	DamageBludgeoning DamageKind = "bludgeoning"
	DamagePiercing    DamageKind = "piercing"
	DamageSlashing    DamageKind = "slashing"
	DamageFire        DamageKind = "fire"
	DamageCold        DamageKind = "cold"
	DamageLightning   DamageKind = "lightning"
	DamageAcid        DamageKind = "acid"
	DamagePoison      DamageKind = "poison"
	DamagePsychic     DamageKind = "psychic"
	DamageNecrotic    DamageKind = "necrotic"
	DamageRadiant     DamageKind = "radiant"
	DamageForce       DamageKind = "force"
)

// DamageKinds lists every supported damage kind in rulebook order.
var DamageKinds = []DamageKind{
	DamageBludgeoning, DamagePiercing, DamageSlashing,
	DamageFire, DamageCold, DamageLightning,
	DamageAcid, DamagePoison, DamagePsychic,
	DamageNecrotic, DamageRadiant, DamageForce,
}

// Valid reports whether k is one of the known damage kinds.
func (k DamageKind) Valid() bool {
	for _, known := range DamageKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseDamageKind accepts any casing ("Fire", "fire", "FIRE").
func ParseDamageKind(s string) (DamageKind, error) {
	k := DamageKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown damage type %q", ErrInvalidCommand, s)
	}
	return k, nil
}

// DefenseKind is the protection a character has against a damage kind.
type DefenseKind string

const (
	DefenseImmunity   DefenseKind = "immunity"
	DefenseResistance DefenseKind = "resistance"
)

// ParseDefenseKind accepts any casing.
func ParseDefenseKind(s string) (DefenseKind, error) {
	switch d := DefenseKind(strings.ToLower(strings.TrimSpace(s))); d {
	case DefenseImmunity, DefenseResistance:
		return d, nil
	}
	return "", fmt.Errorf("unknown defense %q", s)
}

// Defense pairs a damage kind with a defense kind.
type Defense struct {
	Type    DamageKind  `json:"type" bson:"type" yaml:"type"`
	Defense DefenseKind `json:"defense" bson:"defense" yaml:"defense"`
}

// Class is a character class with its hit die and level.
type Class struct {
	Name         string `json:"name" bson:"name" yaml:"name"`
	HitDiceValue int    `json:"hitDiceValue" bson:"hit_dice_value" yaml:"hitDiceValue"`
	ClassLevel   int    `json:"classLevel" bson:"class_level" yaml:"classLevel"`
}

// AbilityScores holds the six ability scores.
type AbilityScores struct {
	Strength     int `json:"strength" bson:"strength" yaml:"strength"`
	Dexterity    int `json:"dexterity" bson:"dexterity" yaml:"dexterity"`
	Constitution int `json:"constitution" bson:"constitution" yaml:"constitution"`
	Intelligence int `json:"intelligence" bson:"intelligence" yaml:"intelligence"`
	Wisdom       int `json:"wisdom" bson:"wisdom" yaml:"wisdom"`
	Charisma     int `json:"charisma" bson:"charisma" yaml:"charisma"`
}

// AffectedStats is the only modifier target items currently carry.
const AffectedStats = "stats"

// Modifier describes what an item changes.
type Modifier struct {
	AffectedObject string `json:"affectedObject" bson:"affected_object" yaml:"affectedObject"`
	AffectedValue  string `json:"affectedValue" bson:"affected_value" yaml:"affectedValue"`
	Value          int    `json:"value" bson:"value" yaml:"value"`
}

// Item is a piece of equipment.
type Item struct {
	Name     string   `json:"name" bson:"name" yaml:"name"`
	Modifier Modifier `json:"modifier" bson:"modifier" yaml:"modifier"`
}

// AffectsStats reports whether the item modifies an ability score.
func (i Item) AffectsStats() bool {
	return strings.EqualFold(i.Modifier.AffectedObject, AffectedStats)
}

// Character is the aggregate root. Only the hit point fields change after load.
type Character struct {
	ID                 string        `json:"id" bson:"_id" yaml:"id"`
	Name               string        `json:"name" bson:"name" yaml:"name"`
	Level              int           `json:"level" bson:"level" yaml:"level"`
	HitPoints          int           `json:"hitPoints" bson:"hit_points" yaml:"hitPoints"`
	CurrentHitPoints   int           `json:"currentHitPoints" bson:"current_hit_points" yaml:"currentHitPoints"`
	TemporaryHitPoints int           `json:"temporaryHitPoints" bson:"temporary_hit_points" yaml:"temporaryHitPoints"`
	Classes            []Class       `json:"classes" bson:"classes" yaml:"classes"`
	Stats              AbilityScores `json:"stats" bson:"stats" yaml:"stats"`
	Items              []Item        `json:"items" bson:"items" yaml:"items"`
	Defenses           []Defense     `json:"defenses" bson:"defenses" yaml:"defenses"`
	Revision           int64         `json:"-" bson:"revision" yaml:"-"`
}

// Health projects the mutable part of the character.
func (c *Character) Health() HealthState {
	defenses := make([]Defense, len(c.Defenses))
	copy(defenses, c.Defenses)
	return HealthState{
		MaxHitPoints:       c.HitPoints,
		CurrentHitPoints:   c.CurrentHitPoints,
		TemporaryHitPoints: c.TemporaryHitPoints,
		Defenses:           defenses,
		Revision:           c.Revision,
	}
}

// WithHealth returns a copy of c carrying the hit points and revision of h.
// Max hit points and defenses stay those of c.
func (c *Character) WithHealth(h HealthState) *Character {
	out := c.Clone()
	out.CurrentHitPoints = h.CurrentHitPoints
	out.TemporaryHitPoints = h.TemporaryHitPoints
	out.Revision = h.Revision
	return out
}

// Clone returns a deep copy.
func (c *Character) Clone() *Character {
	out := *c
	out.Classes = append([]Class(nil), c.Classes...)
	out.Items = append([]Item(nil), c.Items...)
	out.Defenses = append([]Defense(nil), c.Defenses...)
	return &out
}
