package fairsharing

import "github.com/bianchini88/rdmkit/pkg/utils"

// Credentials is the login/password pair for the registry sign-in.
type Credentials struct {
	Login    string
	Password string
}

// Token is the bearer JWT returned by a successful sign-in.
// Its String form is masked so it can be logged safely.
type Token string

func (t Token) String() string {
	return utils.MaskSecret(string(t))
}

// SignInRequest is the JSON payload for POST /users/sign_in.
type SignInRequest struct {
	User SignInUser `json:"user"`
}

// SignInUser carries the credentials inside SignInRequest.
type SignInUser struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SignInResponse is the JSON body returned by POST /users/sign_in.
// Success is a pointer so an absent field can be told apart from false.
type SignInResponse struct {
	Success *bool  `json:"success"`
	JWT     string `json:"jwt"`
	Message string `json:"message,omitempty"`
}
