package repositories

import "errors"

var (
	// ErrRuleNotFound indicates the requested shipping rule does not exist.
	ErrRuleNotFound = errors.New("rule repository: shipping rule not found")
)
