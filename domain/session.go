package domain

import "time"

// Session is the authenticated caller of a request. It is issued at login,
// stored in Redis for the token lifetime and removed at logout.
type Session struct {
	UserID    uint      `json:"user_id"`
	Role      Role      `json:"role"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
