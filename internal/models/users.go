package models

import "strings"

// UserProfile is the directory entry used to address a login alert.
type UserProfile struct {
	UserID    string `db:"user_id"`
	RealmID   string `db:"realm_id"`
	Username  string `db:"username"`
	Email     string `db:"email"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *UserProfile) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}

// RealmMailSettings overrides the process-wide sender for one realm. Empty
// fields fall back to the SMTP defaults.
type RealmMailSettings struct {
	RealmID         string `db:"realm_id"`
	From            string `db:"from_address"`
	FromDisplayName string `db:"from_display_name"`
	ReplyTo         string `db:"reply_to"`
}
