package user

import "time"

// User carries the identity and its credential hash. Credential issuance
// and verification live outside the delivery core; the core only ever asks
// whether an identity exists.
type User struct {
	Username     string    `gorm:"primaryKey;size:64" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
