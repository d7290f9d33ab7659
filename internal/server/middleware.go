package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/blackwell-systems/smilecoach/internal/history"
)

// DeviceHeader carries the guest device id.
const DeviceHeader = "X-Device-ID"

type contextKey string

const identityKey contextKey = "identity"

// requireIdentity resolves a bearer token to a signed-in identity, or the
// device header to a guest identity. Requests with neither are rejected.
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(extractBearerToken(r), r.Header.Get(DeviceHeader))
		if err != nil {
			writeErr(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify prefers the token. A present but invalid token is an error even
// when a device id is also given.
func (s *Server) identify(token, deviceID string) (history.Identity, error) {
	if token != "" {
		if s.deps.Auth == nil {
			return history.Identity{}, history.ErrUnauthenticated
		}
		id, err := s.deps.Auth.Validate(token)
		if err != nil {
			return history.Identity{}, err
		}
		id.DeviceID = strings.TrimSpace(deviceID)
		return id, nil
	}
	if deviceID = strings.TrimSpace(deviceID); deviceID != "" {
		return history.Identity{DeviceID: deviceID}, nil
	}
	return history.Identity{}, history.ErrUnauthenticated
}

// identityFrom returns the identity stored by requireIdentity.
func identityFrom(ctx context.Context) history.Identity {
	if v, ok := ctx.Value(identityKey).(history.Identity); ok {
		return v
	}
	return history.Identity{}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
