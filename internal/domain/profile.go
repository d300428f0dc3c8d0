package domain

// Profile is the display data the profile enrichment service supplies
// for a user id. The chat service stores only opaque ids; profiles are
// fetched on read.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Phone       string `json:"phone,omitempty"`
}
