package model

import "github.com/gofrs/uuid/v5"

// DbProfile is a row of the profile table.
type DbProfile struct {
	ID       uuid.UUID
	Username string
	Data     UserProfile
}
