package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PurposeIssuance is the purpose claim carried by tokens minted after a
// successful challenge validation. A token with any other purpose is
// rejected by the certificate-signing endpoint.
const PurposeIssuance = "certificate-issuance"

// PurposeSession is the purpose claim carried by operator session tokens.
const PurposeSession = "operator-session"

// IssuanceClaims is the payload of the short-lived bearer token authorizing
// a single certificate-request step for an approved identity claim.
type IssuanceClaims struct {
	RequestID string `json:"request_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionClaims is the payload of an operator session token.
type SessionClaims struct {
	OperatorID string `json:"operator_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	Purpose    string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateIssuanceToken mints the time-boxed credential for the certificate
// request step. Expiry is deliberately short: the window between proving
// identity and presenting a CSR.
func GenerateIssuanceToken(requestID, username, email, secret, issuer string, expiry time.Duration) (string, error) {
	claims := &IssuanceClaims{
		RequestID: requestID,
		Username:  username,
		Email:     email,
		Purpose:   PurposeIssuance,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateIssuanceToken validates an issuance token and returns its claims.
// Expired or tampered tokens fail, as do tokens minted for another purpose.
func ValidateIssuanceToken(tokenString, secret string) (*IssuanceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IssuanceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*IssuanceClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Purpose != PurposeIssuance {
		return nil, fmt.Errorf("token purpose mismatch")
	}

	return claims, nil
}

// GenerateSessionToken mints an operator session token.
func GenerateSessionToken(operatorID, username, role, secret, issuer string, expiry time.Duration) (string, error) {
	claims := &SessionClaims{
		OperatorID: operatorID,
		Username:   username,
		Role:       role,
		Purpose:    PurposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateSessionToken validates an operator session token and returns its
// claims. An issuance token presented here fails the purpose check.
func ValidateSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Purpose != PurposeSession {
		return nil, fmt.Errorf("token purpose mismatch")
	}

	return claims, nil
}
