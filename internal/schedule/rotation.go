package schedule

// ActiveChild resolves which child owns a weekly_rotation task during the
// given ISO week. It is a pure function of the rule and the week number, so
// regenerating assignments for any range always reproduces the same owner.
func ActiveChild(r Rule, isoWeek int) (int64, error) {
	if r.Type != RuleWeeklyRotation {
		return 0, ErrUnsupportedRuleType
	}
	if len(r.Children) == 0 {
		return 0, ErrEmptyRotationList
	}

	switch r.Strategy {
	case StrategyOddEvenWeek:
		if len(r.Children) != 2 {
			return 0, ErrInvalidRotationStrategy
		}
		if isoWeek%2 == 1 {
			return r.Children[0], nil
		}
		return r.Children[1], nil

	case StrategyAlternating:
		return r.Children[isoWeek%len(r.Children)], nil

	default:
		return 0, ErrInvalidRotationStrategy
	}
}
