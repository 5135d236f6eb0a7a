package metadata

import "fmt"

type Status string

const (
	StatusAvailable   Status = "available"
	StatusBorrowed    Status = "borrowed"
	StatusDistributed Status = "distributed"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
)

func NewStatus(value string) (Status, error) {
	status := Status(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status: %s", value)
	}
	return status, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusBorrowed, StatusDistributed, StatusMaintenance, StatusRetired:
		return true
	default:
		return false
	}
}

// Condition is the physical state recorded on assets and returns.
type Condition string

const (
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionDamaged Condition = "damaged"
	ConditionBroken  Condition = "broken"
)

func NewCondition(value string) (Condition, error) {
	if value == "" {
		return ConditionGood, nil
	}
	c := Condition(value)
	switch c {
	case ConditionGood, ConditionFair, ConditionDamaged, ConditionBroken:
		return c, nil
	default:
		return "", fmt.Errorf("invalid condition: %s", value)
	}
}
