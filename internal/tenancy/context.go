package tenancy

import "context"

type ctxKey string

const professionalKey ctxKey = "agendai.professional_id"

// WithProfessionalID stores the authenticated professional's id in context.
func WithProfessionalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, professionalKey, id)
}

// ProfessionalIDFromContext extracts the professional id if present.
func ProfessionalIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(professionalKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}
