package security

import "errors"

// JWT 相关错误
var (
	ErrSecretKeyEmpty    = errors.New("security: secret key is empty")
	ErrPublicKeyLoad     = errors.New("security: failed to load public key")
	ErrPrivateKeyLoad    = errors.New("security: failed to load private key")
	ErrTokenInvalid      = errors.New("security: token is invalid")
	ErrTokenExpired      = errors.New("security: token has expired")
	ErrTokenNotValidYet  = errors.New("security: token is not valid yet")
	ErrTokenMalformed    = errors.New("security: token is malformed")
	ErrAlgorithmMismatch = errors.New("security: algorithm mismatch")
	ErrSignatureInvalid  = errors.New("security: signature is invalid")
)
