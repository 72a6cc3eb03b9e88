package dto

type SignUpResult struct {
	UserID uint64
}

type SignInResult struct {
	Token     string
	ExpiresIn int64
	UserID    uint64
	Role      string
}

// OAuthSignInResult carries the outcome of a provider callback that was
// allowed: either an existing account was matched or a new one was created.
type OAuthSignInResult struct {
	Token     string
	ExpiresIn int64
	UserID    uint64
	Created   bool
}
