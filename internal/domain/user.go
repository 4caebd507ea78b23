package domain

import "time"

// User is the owner of estimates and templates. ExternalID correlates the
// record with the messaging identity that created it.
type User struct {
	ID          string
	ExternalID  string
	DisplayName string
	CreatedAt   time.Time
}
