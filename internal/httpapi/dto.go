package httpapi

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries both tokens. The refresh token is also set as a
// cookie.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest is the optional body of POST /refresh and POST /logout when
// the refresh cookie is absent.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the new access token.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// SessionsResponse reports a session count for one user: revoked sessions
// for the logout-all routes, indexed sessions for the admin listing.
type SessionsResponse struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}
