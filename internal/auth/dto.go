package auth

// SignInInput carries the sign-in form fields.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignUpInput carries the registration form fields.
type SignUpInput struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfileInput updates the signed-in user's name and password. Both
// fields are sent together; the store API has no partial update.
type UpdateProfileInput struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=6"`
}

// SessionInfo is the read model handed to callers, token included so the
// sync worker and orders flow can authenticate.
type SessionInfo struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}
