package models

// User is a registered account. Rows are written once, on password
// finalization, and never updated.
type User struct {
	ID           int64  `json:"-"`
	Name         string `json:"name"`
	DOB          string `json:"dob"`
	Mobile       string `json:"mobile"`
	Profession   string `json:"profession"`
	UserID       string `json:"user_id"`
	PasswordHash string `json:"-"`
}
