// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package policy decides whether two school roles may exchange messages.

It is a pure function over role labels with no transport or storage
dependency. Every direct send and every group creation consults it before
anything is persisted or published.

Rules:

  - Director and Student may not communicate, in either direction.
  - Every other pair of known roles is allowed.
  - An unknown role label is denied.
*/
package policy

import (
	"fmt"

	"github.com/taibuivan/campuslink/internal/platform/sec"
)

// ReasonUnknownUserType is the denial reason for an unrecognised role label.
const ReasonUnknownUserType = "Unknown user type"

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// forbidden lists blocked pairs once; [Evaluate] checks both orders.
var forbidden = [][2]sec.UserType{
	{sec.UserTypeDirector, sec.UserTypeStudent},
}

// Evaluate decides whether sender may message recipient.
func Evaluate(sender, recipient sec.UserType) Decision {
	if !sender.Valid() || !recipient.Valid() {
		return Decision{Reason: ReasonUnknownUserType}
	}

	for _, pair := range forbidden {
		if (sender == pair[0] && recipient == pair[1]) || (sender == pair[1] && recipient == pair[0]) {
			return Decision{
				Reason: fmt.Sprintf("Communication between %s and %s is not allowed",
					sender.DisplayName(), recipient.DisplayName()),
			}
		}
	}

	return Decision{Allowed: true}
}

// EvaluateAll checks sender against every recipient and returns the first denial.
func EvaluateAll(sender sec.UserType, recipients []sec.UserType) Decision {
	for _, recipient := range recipients {
		if decision := Evaluate(sender, recipient); !decision.Allowed {
			return decision
		}
	}
	return Decision{Allowed: true}
}
