package docket

import (
	"github.com/turtacn/KeyIP-Docket/pkg/types/common"
)

// Actor is the identity a docket operation is attributed to.  It is passed
// explicitly to every operation that stamps creator/updater columns or writes
// renewal logs.
type Actor struct {
	UserID common.UserID `json:"user_id"`
	JobID  common.JobID  `json:"job_id,omitempty"`
}

// UserActor returns an actor for an interactive user.
func UserActor(id common.UserID) Actor {
	return Actor{UserID: id}
}

// JobActor returns an actor for a queued batch job started by user.
func JobActor(user common.UserID, job common.JobID) Actor {
	return Actor{UserID: user, JobID: job}
}

// IsJob reports whether the actor is a batch job.
func (a Actor) IsJob() bool {
	return a.JobID != ""
}

// Login is the value stored in creator/updater columns.
func (a Actor) Login() string {
	if a.UserID == "" {
		return "system"
	}
	return string(a.UserID)
}

//Personal.AI order the ending
