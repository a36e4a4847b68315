package oauthmodel

// Credentials is the sign-in request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp is the sign-up request body.
type SignUp struct {
	Username    string `json:"userName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

func (s SignUp) Credentials() Credentials {
	return Credentials{Email: s.Email, Password: s.Password}
}

// MfaChallenge correlates a pending sign-in with its verification. MfaToken
// and ChallengeID come back from the client's cookies untouched.
type MfaChallenge struct {
	MfaToken    string
	ChallengeID string
	Otp         string
}

// VerifyChallenge is the verify-mfa request body.
type VerifyChallenge struct {
	Otp string `json:"otp"`
}

// ForgotPassword is the forgot-password request body.
type ForgotPassword struct {
	Email string `json:"email"`
}

// ChangePassword is the change-password request body.
type ChangePassword struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// UserRole names a role granted to or removed from a user.
type UserRole struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserInfo holds the OpenID Connect standard claims about a user.
type UserInfo struct {
	UserID              string `json:"sub,omitempty"`
	FullName            string `json:"name,omitempty"`
	NickName            string `json:"nickname,omitempty"`
	Profile             string `json:"profile,omitempty"`
	Picture             string `json:"picture,omitempty"`
	Website             string `json:"website,omitempty"`
	Email               string `json:"email,omitempty"`
	EmailVerified       *bool  `json:"email_verified,omitempty"`
	Gender              string `json:"gender,omitempty"`
	Birthdate           string `json:"birthdate,omitempty"`
	PhoneNumber         string `json:"phone_number,omitempty"`
	PhoneNumberVerified *bool  `json:"phone_number_verified,omitempty"`
}

// APIResponse is the envelope of every client facing response. On failure
// Status carries the stable error code instead of 200.
type APIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    any    `json:"data"`
}
