package praetor

// Config tunes Guard behavior.
type Config struct {
	// ImpersonationPermission is the permission code checked by
	// CanImpersonate.
	ImpersonationPermission string

	// DisableAudit skips audit writes entirely. Intended for tests and
	// offline tooling.
	DisableAudit bool
}

// DefaultConfig returns the default Guard configuration.
func DefaultConfig() Config {
	return Config{
		ImpersonationPermission: "users.impersonate",
	}
}
