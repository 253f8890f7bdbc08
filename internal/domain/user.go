package domain

import "time"

// User is the record managed by the /users endpoints.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
