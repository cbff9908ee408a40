package requestresponse

// LoginRequest : login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"agent@example.com"`
	Password string `json:"password" validate:"required" example:"P@ssw0rd123"`
}

// RefreshTokenRequest : body of refresh and logout requests
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// TokensResponse : issued token pair
type TokensResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
}

// CurrentUserResponse : identity of the caller as carried by the access token
type CurrentUserResponse struct {
	UserID  int64  `json:"user_id" example:"42"`
	Subject string `json:"subject" example:"agent@example.com"`
	Role    string `json:"role" example:"AGENT"`
}

// RevokedResponse : number of refresh tokens revoked
type RevokedResponse struct {
	Revoked int64 `json:"revoked" example:"3"`
}

// ErrorResponse : standard error body
type ErrorResponse struct {
	Error   string `json:"error" example:"Unauthorized"`
	Message string `json:"message" example:"invalid email or password"`
	Code    int    `json:"code" example:"401"`
}
