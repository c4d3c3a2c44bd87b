package schedule

import (
	"time"

	"chorewheel/internal/calendar"
)

type DecisionKind int

const (
	// NotDue means the task does not fire on the date.
	NotDue DecisionKind = iota
	// DueUnassigned means the task fires but is shared: any family member
	// may complete it. Daily and repeating tasks fire once per date, not
	// once per child.
	DueUnassigned
	// DueForChild means the task fires and a specific child owns it.
	DueForChild
)

// Decision is the outcome of evaluating a rule against a date.
type Decision struct {
	Kind    DecisionKind
	ChildID int64 // set only for DueForChild
}

// Evaluate decides whether a task fires on the given date and for whom.
// Single tasks never fire under date evaluation; they are offered to
// candidates explicitly (see internal/single).
func Evaluate(r Rule, date calendar.Date) (Decision, error) {
	switch r.Type {
	case RuleDaily:
		return Decision{Kind: DueUnassigned}, nil

	case RuleRepeating:
		weekday := time.Weekday(date.Weekday())
		for _, d := range r.RepeatDays {
			if d == weekday {
				return Decision{Kind: DueUnassigned}, nil
			}
		}
		return Decision{Kind: NotDue}, nil

	case RuleWeeklyRotation:
		// The whole ISO week belongs to one child; the rule fires every
		// day of that week.
		childID, err := ActiveChild(r, date.ISOWeek())
		if err != nil {
			return Decision{}, err
		}
		return Decision{Kind: DueForChild, ChildID: childID}, nil

	case RuleSingle:
		return Decision{Kind: NotDue}, nil

	default:
		return Decision{}, ErrUnsupportedRuleType
	}
}
