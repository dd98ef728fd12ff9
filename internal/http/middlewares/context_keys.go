package middlewares

const (
	CtxRequestID = "request_id"

	ctxPrincipalKey = "auth.principal"
	ctxUserIDKey    = "auth.userID"
	ctxEmailKey     = "auth.email"
	ctxRoleKey      = "auth.role"
)
