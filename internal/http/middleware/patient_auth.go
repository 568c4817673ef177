package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const patientClaimsKey contextKey = "patientClaims"

// PatientClaims are the claims Sage issues for an authenticated patient.
// Subject carries the patient UUID.
type PatientClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// PatientJWT enforces an HMAC-signed JWT on patient-facing endpoints. The
// patient app obtains the token at login; the chat engine trusts the subject
// claim as the patient identity.
func PatientJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, `{"error":"patient auth disabled"}`, http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := &PatientClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			if _, err := uuid.Parse(claims.Subject); err != nil {
				http.Error(w, `{"error":"invalid subject"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), patientClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PatientClaimsFromContext returns the validated patient claims, if present.
func PatientClaimsFromContext(ctx context.Context) (*PatientClaims, bool) {
	claims, ok := ctx.Value(patientClaimsKey).(*PatientClaims)
	return claims, ok
}

// PatientIDFromContext returns the authenticated patient's UUID.
func PatientIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := PatientClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// SignPatientToken mints a patient JWT. Used by the login handler and tests.
func SignPatientToken(secret string, patientID uuid.UUID, name string, ttl time.Duration) (string, error) {
	claims := PatientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   patientID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Name: name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
