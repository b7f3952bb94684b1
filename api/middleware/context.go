package middleware

import "context"

type contextKey string

const (
	ctxStaffID contextKey = "staff_id"
	ctxRole    contextKey = "actor_role"
)

// StaffIDFromContext returns the JWT subject of the authenticated staff caller.
func StaffIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStaffID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithStaff injects the staff identity into the context.
func WithStaff(ctx context.Context, staffID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxStaffID, staffID)
	return context.WithValue(ctx, ctxRole, role)
}
