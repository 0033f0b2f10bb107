package reconcile

// Policy carries the per-request reconciliation settings, constructed once
// from configuration instead of being read ad hoc.
type Policy struct {
	// PreventNonAdminCreation blocks record creation for emails outside the
	// admin allowlist. Existing users are never blocked by this flag.
	PreventNonAdminCreation bool

	// RememberUser controls the session lifetime granted after login.
	RememberUser bool

	// PostLoginRedirect is the destination after a successful callback.
	PostLoginRedirect string
}
