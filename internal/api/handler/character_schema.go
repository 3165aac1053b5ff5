package handler

// --- Requests ---

type damageRequest struct {
	CharacterID string `json:"characterId" validate:"required"`
	DamageType  string `json:"damageType"  validate:"required,damage_kind"`
	Damage      int    `json:"damage"      validate:"required,gt=0"`
}

type healRequest struct {
	CharacterID string `json:"characterId" validate:"required"`
	Amount      int    `json:"amount"      validate:"required,gt=0"`
}

type temporaryHitPointsRequest struct {
	CharacterID string `json:"characterId" validate:"required"`
	Amount      int    `json:"amount"      validate:"required,gt=0"`
}

// --- Responses ---

type statsResponse struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

type itemResponse struct {
	Name          string `json:"name"`
	ModifierStat  string `json:"modifierStat"`
	ModifierValue int    `json:"modifierValue"`
}

type defenseResponse struct {
	Type    string `json:"type"`
	Defense string `json:"defense"`
}

type characterResponse struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Level               int               `json:"level"`
	HitPoints           int               `json:"hitPoints"`
	CurrentHitPoints    int               `json:"currentHitPoints"`
	TemporaryHitPoints  int               `json:"temporaryHitPoints"`
	Classes             []string          `json:"classes"`
	Stats               statsResponse     `json:"stats"`
	ItemsAffectingStats []itemResponse    `json:"itemsAffectingStats"`
	Defenses            []defenseResponse `json:"defenses"`
}

type mutationResponse struct {
	CharacterID        string `json:"characterId"`
	HitPoints          int    `json:"hitPoints"`
	CurrentHitPoints   int    `json:"currentHitPoints"`
	TemporaryHitPoints int    `json:"temporaryHitPoints"`
	Replayed           bool   `json:"replayed,omitempty"`
}

// changeMessage is pushed to live observers. It carries the id only; clients
// re-fetch the character.
type changeMessage struct {
	Type        string `json:"type"`
	CharacterID string `json:"characterId"`
}
