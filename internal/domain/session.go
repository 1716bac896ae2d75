package domain

import "time"

// Session is the single active-use session slot for a principal. A login or
// refresh replaces the slot wholesale, which is what revokes every previously
// issued access token without sweeping a token collection.
type Session struct {
	PrincipalID string
	Space       Space
	Token       string
	Revoked     bool
	Expired     bool
	IssuedAt    time.Time
	LastSeenAt  time.Time
}
