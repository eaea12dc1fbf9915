package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// Roles carried in the "role" claim.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Claims is what a verified session token says about its bearer.
type Claims struct {
	Subject string
	Role    string
}

// GenerateToken creates an HS256 token for subject with the given role.
// Sessions are issued by the account service; this exists for operators and tests.
func GenerateToken(secret []byte, subject, role string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(secret []byte, tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
}

// ParseClaims validates tokenString and extracts subject and role.
func ParseClaims(secret []byte, tokenString string) (*Claims, error) {
	token, err := ValidateToken(secret, tokenString)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("token does not contain a valid 'sub' claim")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleCustomer
	}
	return &Claims{Subject: sub, Role: role}, nil
}
