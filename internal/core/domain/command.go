package domain

import "fmt"

// CommandType names the three mutations a character accepts.
type CommandType string

const (
	CommandDamage                  CommandType = "damage"
	CommandHeal                    CommandType = "heal"
	CommandGrantTemporaryHitPoints CommandType = "grant_temporary_hit_points"
)

// Command is a single-use mutation input. Build it with Damage, Heal or
// GrantTemporaryHitPoints.
type Command struct {
	Type       CommandType
	DamageKind DamageKind // only set for CommandDamage
	Amount     int
}

// Damage builds a damage command.
func Damage(kind DamageKind, amount int) Command {
	return Command{Type: CommandDamage, DamageKind: kind, Amount: amount}
}

// Heal builds a heal command.
func Heal(amount int) Command {
	return Command{Type: CommandHeal, Amount: amount}
}

// GrantTemporaryHitPoints builds a temporary hit point grant.
func GrantTemporaryHitPoints(amount int) Command {
	return Command{Type: CommandGrantTemporaryHitPoints, Amount: amount}
}

// Validate rejects commands the engine must never see.
func (c Command) Validate() error {
	if c.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidCommand, c.Amount)
	}
	switch c.Type {
	case CommandDamage:
		if !c.DamageKind.Valid() {
			return fmt.Errorf("%w: unknown damage type %q", ErrInvalidCommand, c.DamageKind)
		}
	case CommandHeal, CommandGrantTemporaryHitPoints:
	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, c.Type)
	}
	return nil
}
