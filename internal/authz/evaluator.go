// internal/authz/evaluator.go
package authz

import (
	"github.com/mja00/banguard/internal/models"
)

// DeniedBanned is the machine-readable reason attached to every denial
// produced by the evaluator.
const DeniedBanned = "account banned"

// Evaluator decides whether a login attempt may proceed once credentials
// have already been verified upstream. It is pure: no store access, no
// side effects. The ban check runs strictly before any second-factor
// challenge, so a banned account never sees a 2FA prompt.
type Evaluator struct {
	message string
}

// NewEvaluator returns an Evaluator whose denials carry the given
// operator-facing message.
func NewEvaluator(message string) *Evaluator {
	return &Evaluator{message: message}
}

// EvaluateLogin gates a resolved account. Ban state is the only input the
// decision depends on; 2FA enrollment is deliberately not consulted here.
func (e *Evaluator) EvaluateLogin(acct models.Account) models.Decision {
	if acct.Banned {
		return models.Deny(DeniedBanned, e.message)
	}
	return models.Allow()
}
