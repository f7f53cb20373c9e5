package middleware

import "context"

// Actor is the authenticated caller. Anonymous shoppers have the zero value.
type Actor struct {
	UserID string
	Role   string
}

type actorKey struct{}

type guestSessionKey struct{}

func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

func UserIDFromContext(ctx context.Context) string {
	return ActorFromContext(ctx).UserID
}

func RoleFromContext(ctx context.Context) string {
	return ActorFromContext(ctx).Role
}

func WithUserID(ctx context.Context, userID string) context.Context {
	actor := ActorFromContext(ctx)
	actor.UserID = userID
	return WithActor(ctx, actor)
}

func WithRole(ctx context.Context, role string) context.Context {
	actor := ActorFromContext(ctx)
	actor.Role = role
	return WithActor(ctx, actor)
}

// GuestSessionFromContext returns the guest cart session id carried by the
// request cookie, or the one issued for this request.
func GuestSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(guestSessionKey{}).(string)
	return id
}

func WithGuestSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, guestSessionKey{}, sessionID)
}
