package auth

import "errors"

// Sentinel errors returned by JWTService. Access and refresh tokens get
// separate sentinels so handlers can phrase the response correctly.
var (
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid covers a future nbf claim beyond the allowed skew.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrWrongTokenType means a token was presented in the wrong context,
	// such as a refresh token on a regular API request.
	ErrWrongTokenType = errors.New("wrong token type")
)
