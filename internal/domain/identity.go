package domain

// Identity is the authenticated caller, supplied by the auth layer.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}
