package models

// Role tags issued by the API.
const (
	RoleUser        = "USER"
	RoleContributor = "CONTRIBUTOR"
	RoleAdmin       = "ADMIN"
)

// UserProfile is the account snapshot returned by /account/me and /users/{id}.
// Timestamps are passed through as the server formats them.
type UserProfile struct {
	UserID        string   `json:"userId"`
	Email         string   `json:"email,omitempty"`
	Username      string   `json:"username"`
	EmailVerified *bool    `json:"emailVerified,omitempty"`
	MfaEnabled    *bool    `json:"mfaEnabled,omitempty"`
	Locale        string   `json:"locale,omitempty"`
	TimeZone      string   `json:"timeZone,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
	LastLoginAt   string   `json:"lastLoginAt,omitempty"`
}

// HasRole reports whether role appears in the profile's role list.
func (u *UserProfile) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AccountUpdate is a partial profile patch. Nil fields are left untouched.
type AccountUpdate struct {
	Username *string `json:"username,omitempty"`
	Locale   *string `json:"locale,omitempty"`
	TimeZone *string `json:"timeZone,omitempty"`
}

// IsEmpty returns true when the patch changes nothing.
func (a AccountUpdate) IsEmpty() bool {
	return a.Username == nil && a.Locale == nil && a.TimeZone == nil
}

// Apply copies the set fields of the patch onto profile.
func (a AccountUpdate) Apply(profile *UserProfile) {
	if a.Username != nil {
		profile.Username = *a.Username
	}
	if a.Locale != nil {
		profile.Locale = *a.Locale
	}
	if a.TimeZone != nil {
		profile.TimeZone = *a.TimeZone
	}
}
