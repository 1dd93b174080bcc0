package model

// Identity is the locally persisted student login state. The admin variant
// lives under a separate store namespace so both may coexist.
type Identity struct {
	Email   string `json:"email"`
	College string `json:"college,omitempty"`
	Token   string `json:"token"`
}

// Authenticated reports whether a usable bearer token is present.
func (i Identity) Authenticated() bool {
	return i.Token != ""
}

// College is a registered institution; public listing feeds the login
// selector, the admin view manages the full record.
type College struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Passkey          string `json:"passkey,omitempty"`
	PasskeyExpiresAt string `json:"passkey_expires_at,omitempty"`
	IsActive         bool   `json:"is_active,omitempty"`
}

// Registration is an admin-visible student roster row. Results are joined
// against this roster by UserID on the client side.
type Registration struct {
	UserID  int    `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	College string `json:"college,omitempty"`
}
