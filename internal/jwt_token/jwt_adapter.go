package jwttoken

import (
	"github.com/google/uuid"

	"memberd/internal/platform/middleware"
)

// ToMiddlewareClaims converts token claims to the auth middleware's shape.
func ToMiddlewareClaims(claims *Claims) (*middleware.JWTClaims, error) {
	memberID, err := uuid.Parse(claims.MemberID)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{MemberID: memberID}, nil
}

// JWTServiceAdapter implements middleware.JWTValidator on top of JWTService.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}
