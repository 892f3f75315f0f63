package api

import (
	"context"
	"net/http"

	"github.com/kazz187/taskmarket/internal/actor"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/clog"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type actorKey struct{}

// ActorMiddleware reads the actor set by the authenticating gateway. Requests
// without a valid actor are rejected before reaching a handler.
func ActorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := r.Header.Get(HeaderActorID)
			if id == "" {
				cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "actor is required", nil)
				return
			}
			role, err := actor.ParseRole(r.Header.Get(HeaderActorRole))
			if err != nil {
				cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "actor role is invalid", err)
				return
			}
			clog.AddActor(ctx, id, string(role))
			ctx = context.WithValue(ctx, actorKey{}, actor.Actor{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFromContext(ctx context.Context) actor.Actor {
	a, _ := ctx.Value(actorKey{}).(actor.Actor)
	return a
}
