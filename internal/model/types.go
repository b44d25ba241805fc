package model

// Proxy is a keyed speaking identity a user can relay messages through.
type Proxy struct {
	Key       string `json:"key"`        // Unique, immutable
	Name      string `json:"name"`       // Display name used for the relay sender
	AvatarURL string `json:"avatar_url"` // May be empty
}

// Grant authorizes one user to speak as one proxy.
type Grant struct {
	ProxyKey string `json:"proxy_key"`
	UserID   string `json:"user_id"`
}

// XPRecord is a user's progression state.
type XPRecord struct {
	UserID string `json:"user_id"`
	XP     int64  `json:"xp"`    // Never negative
	Level  int64  `json:"level"` // Starts at 1
}

// DefaultXPRecord returns the implicit record of a user who has never been
// awarded XP.
func DefaultXPRecord(userID string) XPRecord {
	return XPRecord{UserID: userID, XP: 0, Level: 1}
}
