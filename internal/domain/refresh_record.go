package domain

import "time"

// RefreshRecord is the single active refresh token per subject. Rotation
// overwrites Token and ExpiresAt in place; a superseded token string no
// longer resolves to any record.
type RefreshRecord struct {
	Subject   string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record's validity has passed at the given time.
func (r *RefreshRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
