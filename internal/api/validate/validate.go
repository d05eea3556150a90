package validate

import "fmt"

// MaxActionDetailLen caps the free-text detail field.
const MaxActionDetailLen = 500

// ActionLog checks the action-log creation payload and returns one message
// per violated rule.
func ActionLog(actionType int, actionDetail string) []string {
	var violations []string
	if actionType < 0 {
		violations = append(violations, "actionType must be >= 0")
	}
	if len(actionDetail) == 0 {
		violations = append(violations, "actionDetail is required")
	}
	if len(actionDetail) > MaxActionDetailLen {
		violations = append(violations, fmt.Sprintf("actionDetail exceeds %d characters", MaxActionDetailLen))
	}
	return violations
}
