package models

type SignupRequest struct {
	Email string `json:"email"`
}

type SignupVerify struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SigninResponse carries an issued access token.
type SigninResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
	Role        string `json:"role"`
}

// MfaResponse signals that a second factor is required before a token is issued.
type MfaResponse struct {
	SessionKey string `json:"sessionKey"`
	NeedMfa    bool   `json:"needMfa"`
	Message    string `json:"message"`
}

// SigninResult is the union returned by POST /auth/signin. Exactly one of
// the two halves is meaningful, selected by NeedMfa.
type SigninResult struct {
	SigninResponse
	MfaResponse
}

// StepUp returns true when the server asked for an MFA code.
func (r *SigninResult) StepUp() bool {
	return r.NeedMfa
}

type MfaVerify struct {
	SessionKey string `json:"sessionKey"`
	Code       string `json:"code"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordConfirm struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}
