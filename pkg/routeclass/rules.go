package routeclass

// DefaultRules is the policy shared with the edge. It also names paths
// served by collaborating services behind the same gateway (login, OTP,
// password reset, geography and public profile lookups), so the edge and
// this service agree on one table.
func DefaultRules() Rules {
	return Rules{
		PublicExact: []string{
			// Collaborator services.
			"/auth/login",
			"/auth/otp/request",
			"/auth/otp/verify",
			"/auth/password-reset",
			"/auth/password-reset/confirm",
			"/geography/countries",
			"/geography/states",
			"/companies/public-info",
			"/users/public-info",

			// Signer mutations carry the capability token in the body.
			"/signature-requests/consent",
			"/signature-requests/submit",
			"/signature-requests/reject",

			"/preview/info",
			"/preview/status",
			"/preview/access",

			"/.well-known/jwks.json",
			"/livez",
			"/readyz",
		},
		PublicPrefixes: []string{
			"/signature-requests/layout/",
		},
		// Keyed by signer id, which is a UUID but handed to the signer.
		AlwaysPublicBases: []string{
			"/preview/available",
		},
		TokenOrIDBases: []string{
			"/signature-requests",
		},
	}
}

// Default returns a Classifier over DefaultRules.
func Default() *Classifier {
	return New(DefaultRules())
}
