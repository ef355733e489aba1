package escalation

import "errors"

var (
	ErrRuleNotFound          = errors.New("escalation rule not found")
	ErrActiveRuleExists      = errors.New("an active rule already exists for this violation type")
	ErrChargeAlreadyAssessed = errors.New("charge already assessed for this attendance")
)
