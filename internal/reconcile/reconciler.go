// Package reconcile merges an externally-asserted identity into the local
// user record. It is the ONLY place where identity-to-user mapping logic
// lives: precedence rules, conditional field mapping, the admin creation
// gate, and verification-timestamp semantics.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SalehHub/authx-auth/internal/allowlist"
	"github.com/SalehHub/authx-auth/internal/authx"
	"github.com/SalehHub/authx-auth/internal/store"
)

var (
	// ErrInvalidIdentity marks an identity without a usable email. Client
	// input error, not retried.
	ErrInvalidIdentity = errors.New("identity did not include a valid email address")

	// ErrForbidden marks a blocked record creation under the admin-only
	// policy. Authorization error, not retried.
	ErrForbidden = errors.New("only admin users can access this application")
)

// PrimaryProvider is the canonical name of the identity service this
// bridge integrates with.
const PrimaryProvider = "authx"

// sideProviders are the secondary provider id columns recognized during
// provider inference, scanned in this order.
var sideProviders = []string{"google", "github", "gitlab", "microsoft"}

// Reconciler computes the deterministic, idempotent local-user mutation for
// an external identity, respecting the columns the record type actually has.
type Reconciler struct {
	store store.UserStore
	allow *allowlist.Allowlist
	now   func() time.Time
}

func New(userStore store.UserStore, allow *allowlist.Allowlist) *Reconciler {
	return &Reconciler{
		store: userStore,
		allow: allow,
		now:   time.Now,
	}
}

// Reconcile validates the identity, applies the creation policy, computes
// the attribute set the schema supports, and persists it through a single
// atomic upsert. The returned record reflects the persisted state.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	identity *authx.Identity,
	policy Policy,
) (*store.Record, error) {

	if identity == nil || strings.TrimSpace(identity.Email) == "" {
		return nil, ErrInvalidIdentity
	}
	email := identity.Email

	// The capability set is never cached: the schema may differ between
	// deployments and change between requests in tests.
	fields, err := r.store.SupportedFields(ctx)
	if err != nil {
		return nil, wrapStoreErr("load field capabilities", err)
	}

	existing, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, wrapStoreErr("find user by email", err)
	}

	// The gate applies only to creation. An existing non-admin user logging
	// in again is allowed.
	if policy.PreventNonAdminCreation && existing == nil && !r.allow.Allows(email) {
		return nil, ErrForbidden
	}

	attrs := r.computeAttributes(identity, fields, existing)

	record, err := r.store.Upsert(ctx, email, attrs)
	if err != nil {
		return nil, wrapStoreErr("persist user", err)
	}

	return record, nil
}

func wrapStoreErr(op string, err error) error {
	if errors.Is(err, store.ErrRecordTypeUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", store.ErrRecordTypeUnavailable, op, err)
}

func (r *Reconciler) computeAttributes(
	identity *authx.Identity,
	fields store.FieldSet,
	existing *store.Record,
) map[string]any {

	raw := identity.Raw
	attrs := make(map[string]any)

	if fields.Has("name") {
		name := strings.TrimSpace(identity.Name)
		if name == "" {
			name = emailLocalPart(identity.Email)
		}
		attrs["name"] = name
	}

	// Blank values never overwrite whatever is already stored.
	if fields.Has("nickname") && identity.Nickname != "" {
		attrs["nickname"] = identity.Nickname
	}
	if fields.Has("avatar") && identity.Avatar != "" {
		attrs["avatar"] = identity.Avatar
	}

	if fields.Has("authx_id") {
		if id := resolveProviderID("authx_id", identity.ID, raw, existing); id != "" {
			attrs["authx_id"] = id
		}
	}

	provider := resolveAuthProvider(raw, existing)
	if fields.Has("auth_provider") {
		attrs["auth_provider"] = provider
	}

	if provider != PrimaryProvider {
		column := provider + "_id"
		if fields.Has(column) {
			if id := resolveProviderID(column, "", raw, existing); id != "" {
				attrs[column] = id
			}
		}
	}

	if fields.Has("email_verified_at") {
		// Fill-only policy: a nil resolution omits the attribute instead of
		// clearing a previously-verified value.
		if verifiedAt := r.resolveEmailVerifiedAt(raw); verifiedAt != nil {
			attrs["email_verified_at"] = *verifiedAt
		}
	}

	return attrs
}

// resolveProviderID resolves the value for a provider id column.
// Precedence: raw payload value, then the primary identity id (authx_id
// only), then the existing record's value, then absent.
func resolveProviderID(
	column string,
	primaryID string,
	raw map[string]any,
	existing *store.Record,
) string {

	if v := authx.StringValue(raw[column]); v != "" {
		return v
	}
	if primaryID != "" {
		return primaryID
	}
	if v, ok := existing.Attr(column); ok {
		return authx.StringValue(v)
	}
	return ""
}

// resolveAuthProvider infers which provider originally authenticated the
// user. Precedence: explicit payload value, then a recognized side-provider
// id present in the payload or on the existing record, then the primary
// provider name.
func resolveAuthProvider(raw map[string]any, existing *store.Record) string {
	if v := strings.ToLower(strings.TrimSpace(authx.StringValue(raw["auth_provider"]))); v != "" {
		return v
	}

	for _, provider := range sideProviders {
		column := provider + "_id"
		if authx.StringValue(raw[column]) != "" {
			return provider
		}
		if v, ok := existing.Attr(column); ok && authx.StringValue(v) != "" {
			return provider
		}
	}

	return PrimaryProvider
}

// resolveEmailVerifiedAt resolves the verification timestamp. Precedence:
// parseable payload timestamp, then now() when the payload asserts a truthy
// email_verified, then nil (unknown). Parse failures fall through, they are
// never surfaced as errors.
func (r *Reconciler) resolveEmailVerifiedAt(raw map[string]any) *time.Time {
	if v := authx.StringValue(raw["email_verified_at"]); v != "" {
		if ts, err := parseTimestamp(v); err == nil {
			return &ts
		}
	}

	if truthy(raw["email_verified"]) {
		now := r.now().UTC()
		return &now
	}

	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return false
	}
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}
