package design

// Mode selects how conditions are assigned to participants.
type Mode string

const (
	// ModeBetween gives each participant a single condition, round-robin
	// over the number of participants already in the ledger.
	ModeBetween Mode = "between"

	// ModeWithin gives each participant every condition.
	ModeWithin Mode = "within"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid returns true if this is a known mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeBetween, ModeWithin:
		return true
	default:
		return false
	}
}

// Assign returns the conditions the next participant will see and, for
// between-subject designs, the index of the one chosen (-1 otherwise).
//
// existing is the number of participants already recorded. Between-subject
// assignment is existing mod len(conditions); a negative count is treated as 0.
func Assign(mode Mode, conditions []*Condition, existing int) ([]*Condition, int) {
	if mode != ModeBetween || len(conditions) == 0 {
		return conditions, -1
	}
	if existing < 0 {
		existing = 0
	}
	i := existing % len(conditions)
	return []*Condition{conditions[i]}, i
}

// SlotsPerParticipant returns how many trial slots a ledger row carries.
func SlotsPerParticipant(mode Mode, conditions int) int {
	if mode == ModeBetween {
		return 1
	}
	return conditions
}
