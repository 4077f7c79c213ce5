package domain

import "time"

// Branch is an office location tickets and users are tagged with.
type Branch struct {
	ID        string
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}
