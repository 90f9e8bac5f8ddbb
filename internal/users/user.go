package users

// User is a row in the users table. ResetToken and ResetExpire are set
// only while a password reset is outstanding; ResetExpire is epoch
// milliseconds.
type User struct {
	ID           int     `json:"id"`
	Username     string  `json:"username"`
	Email        *string `json:"email,omitempty"`
	PasswordHash string  `json:"-"`
	IsAdmin      bool    `json:"admin"`
	ResetToken   *string `json:"-"`
	ResetExpire  *int64  `json:"-"`
}
