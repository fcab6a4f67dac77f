package domain

// AuthenticatedUser is the identity resolved from a verified bearer token.
type AuthenticatedUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

// Normalized returns a copy whose metadata maps are never nil.
func (u AuthenticatedUser) Normalized() AuthenticatedUser {
	if u.UserMetadata == nil {
		u.UserMetadata = map[string]any{}
	}
	if u.AppMetadata == nil {
		u.AppMetadata = map[string]any{}
	}
	return u
}
