package model

import "time"

// Session binds a browser cookie to a backend auth token. User caches the
// account record fetched from /api/users/me/ after the token was confirmed;
// a nil User means the token has not been verified yet this session.
type Session struct {
	ID        string
	Token     string
	User      *User
	CreatedAt time.Time
}
