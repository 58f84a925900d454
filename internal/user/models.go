package user

import "time"

// User is the directory record for an account. Presence status and the
// current-call pointer live in the presence tracker, not here; this record
// only carries profile data and credentials.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	DisplayName  string    `json:"displayName" db:"display_name"`
	AvatarURL    string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
