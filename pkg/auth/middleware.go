package auth

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ErrNoBearerToken is returned when the authorization value is absent or not a bearer token.
var ErrNoBearerToken = errors.New("auth: missing or malformed bearer token")

type claimsKey struct{}

// ContextWithClaims attaches validated claims to ctx.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by the auth interceptor or middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
// The scheme is case-insensitive.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", ErrNoBearerToken
	}
	return token, nil
}

// MethodRoles maps a full gRPC method name to the roles allowed to call it.
// Methods absent from the map only need a valid token.
type MethodRoles map[string][]string

// UnaryAuthInterceptor authenticates every call except the public methods and
// attaches the caller's claims to the handler context.
func UnaryAuthInterceptor(jwtService *JWTService, roles MethodRoles, public ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(public))
	for _, m := range public {
		open[m] = true
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}

		claims, err := authenticate(ctx, jwtService)
		if err != nil {
			return nil, err
		}
		if allowed := roles[info.FullMethod]; len(allowed) > 0 && !claims.HasAnyRole(allowed...) {
			return nil, status.Errorf(codes.PermissionDenied, "requires one of roles %v", allowed)
		}
		return handler(ContextWithClaims(ctx, claims), req)
	}
}

func authenticate(ctx context.Context, jwtService *JWTService) (*Claims, error) {
	var header string
	if values := metadata.ValueFromIncomingContext(ctx, "authorization"); len(values) > 0 {
		header = values[0]
	}
	token, err := BearerToken(header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return claims, nil
}
