// Package audit enriches document audit fields from the request context.
package audit

import (
	"context"

	appctx "goodsflow/internal/core/context"
)

// EnrichCreatedBy stamps both audit fields from the context user.
// Use in before-create hooks. No-op when the request is unauthenticated.
func EnrichCreatedBy(ctx context.Context, createdBy, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return
	}
	*createdBy = userID
	*updatedBy = userID
}

// EnrichUpdatedBy stamps only the updater. Use in before-update hooks.
func EnrichUpdatedBy(ctx context.Context, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return
	}
	*updatedBy = userID
}
