package auth

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// Middleware builds the request Actor from the identity headers set by
// the authenticating gateway and rejects requests without one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Operator-Id")
		role, ok := ParseRole(r.Header.Get("X-Operator-Role"))
		if id == "" || !ok {
			http.Error(w, "missing operator identity", http.StatusUnauthorized)
			return
		}

		actor := Actor{
			ID:   id,
			Name: r.Header.Get("X-Operator-Name"),
			Role: role,
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
