package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type RuleType string

const (
	RuleDaily          RuleType = "daily"
	RuleRepeating      RuleType = "repeating"
	RuleWeeklyRotation RuleType = "weekly_rotation"
	RuleSingle         RuleType = "single"
)

type RotationStrategy string

const (
	StrategyOddEvenWeek RotationStrategy = "odd_even_week"
	StrategyAlternating RotationStrategy = "alternating"
)

var (
	ErrUnsupportedRuleType     = errors.New("unsupported rule type")
	ErrEmptyRotationList       = errors.New("rotation has no children")
	ErrInvalidRotationStrategy = errors.New("invalid rotation strategy")
)

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule is a task's recurrence rule. Which fields are meaningful depends on
// Type: RepeatDays for repeating, Strategy and Children for weekly_rotation.
// Daily and single rules carry no configuration.
type Rule struct {
	Type       RuleType
	RepeatDays []time.Weekday   // repeating: weekdays the task fires on
	Strategy   RotationStrategy // weekly_rotation
	Children   []int64          // weekly_rotation: ordered child IDs
}

// Parse parses a serialized rule like "DAILY", "REPEATING;BYDAY=MO,WE,FR",
// or "ROTATION;STRATEGY=ALTERNATING;CHILDREN=3,5".
func Parse(s string) (Rule, error) {
	if s == "" {
		return Rule{}, fmt.Errorf("empty rule")
	}

	parts := strings.Split(s, ";")
	var r Rule

	switch parts[0] {
	case "DAILY":
		r.Type = RuleDaily
	case "REPEATING":
		r.Type = RuleRepeating
	case "ROTATION":
		r.Type = RuleWeeklyRotation
	case "SINGLE":
		r.Type = RuleSingle
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnsupportedRuleType, parts[0])
	}

	for _, part := range parts[1:] {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Rule{}, fmt.Errorf("invalid rule part: %q", part)
		}
		key, val := kv[0], kv[1]

		switch key {
		case "BYDAY":
			if r.Type != RuleRepeating {
				return Rule{}, fmt.Errorf("BYDAY only valid for REPEATING rules")
			}
			for _, d := range strings.Split(val, ",") {
				wd, ok := dayNames[strings.TrimSpace(d)]
				if !ok {
					return Rule{}, fmt.Errorf("unknown day: %q", d)
				}
				r.RepeatDays = append(r.RepeatDays, wd)
			}

		case "STRATEGY":
			if r.Type != RuleWeeklyRotation {
				return Rule{}, fmt.Errorf("STRATEGY only valid for ROTATION rules")
			}
			switch val {
			case "ODD_EVEN_WEEK":
				r.Strategy = StrategyOddEvenWeek
			case "ALTERNATING":
				r.Strategy = StrategyAlternating
			default:
				return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRotationStrategy, val)
			}

		case "CHILDREN":
			if r.Type != RuleWeeklyRotation {
				return Rule{}, fmt.Errorf("CHILDREN only valid for ROTATION rules")
			}
			for _, idStr := range strings.Split(val, ",") {
				id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
				if err != nil {
					return Rule{}, fmt.Errorf("invalid child id: %q", idStr)
				}
				r.Children = append(r.Children, id)
			}

		default:
			return Rule{}, fmt.Errorf("unsupported rule key: %q", key)
		}
	}

	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// String serializes the rule back to its storage form.
func (r Rule) String() string {
	switch r.Type {
	case RuleDaily:
		return "DAILY"
	case RuleSingle:
		return "SINGLE"
	case RuleRepeating:
		var days []string
		for _, d := range r.RepeatDays {
			days = append(days, dayAbbrev[d])
		}
		return "REPEATING;BYDAY=" + strings.Join(days, ",")
	case RuleWeeklyRotation:
		strategy := "ALTERNATING"
		if r.Strategy == StrategyOddEvenWeek {
			strategy = "ODD_EVEN_WEEK"
		}
		var ids []string
		for _, id := range r.Children {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		return fmt.Sprintf("ROTATION;STRATEGY=%s;CHILDREN=%s", strategy, strings.Join(ids, ","))
	}
	return ""
}

// Validate checks the structural invariants of the rule configuration.
func (r Rule) Validate() error {
	switch r.Type {
	case RuleDaily, RuleSingle:
		return nil
	case RuleRepeating:
		if len(r.RepeatDays) == 0 {
			return fmt.Errorf("repeating rule needs at least one weekday")
		}
		return nil
	case RuleWeeklyRotation:
		if len(r.Children) == 0 {
			return ErrEmptyRotationList
		}
		switch r.Strategy {
		case StrategyAlternating:
			return nil
		case StrategyOddEvenWeek:
			if len(r.Children) != 2 {
				return fmt.Errorf("%w: odd_even_week needs exactly 2 children, got %d",
					ErrInvalidRotationStrategy, len(r.Children))
			}
			return nil
		default:
			return fmt.Errorf("%w: %q", ErrInvalidRotationStrategy, r.Strategy)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedRuleType, r.Type)
	}
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Type {
	case RuleDaily:
		return "Every day"
	case RuleSingle:
		return "One-time task, first to accept"
	case RuleRepeating:
		var names []string
		for _, d := range r.RepeatDays {
			names = append(names, d.String()[:3])
		}
		return "Every " + strings.Join(names, ", ")
	case RuleWeeklyRotation:
		if r.Strategy == StrategyOddEvenWeek {
			return "Rotates by odd/even week"
		}
		return fmt.Sprintf("Rotates weekly between %d children", len(r.Children))
	}
	return ""
}
