package api_context

import "context"

type ctxKey string

const (
	DocumentRefKey ctxKey = "documentRef"
	AuthUserIDKey  ctxKey = "authUserID"
	AuthRolesKey   ctxKey = "authRoles"
)

// DocumentRef identifies a stored document by its collection and in-site ID.
type DocumentRef struct {
	Collection string
	ID         string
}

func DocumentRefFromContext(ctx context.Context) (DocumentRef, bool) {
	ref, ok := ctx.Value(DocumentRefKey).(DocumentRef)
	return ref, ok
}

func AuthUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AuthUserIDKey).(string)
	return id, ok
}

func AuthRolesFromContext(ctx context.Context) ([]string, bool) {
	roles, ok := ctx.Value(AuthRolesKey).([]string)
	return roles, ok
}
