package obp

// credKind discriminates the Credential variants.
type credKind int

const (
	kindNone credKind = iota
	kindBearer
	kindCookieDelegated
)

// Credential is the tagged authentication state for outbound requests.
// Three variants exist:
//
//   - NoCredential: nothing held; a probe is attempted before requests.
//   - BearerToken: a real token attached as an Authorization header.
//   - CookieDelegated: trust is delegated to an http-only cookie the
//     client cannot read. No Authorization header is attached; the
//     cookie jar carries the credential.
type Credential struct {
	kind  credKind
	token string
}

// NoCredential returns the empty credential.
func NoCredential() Credential { return Credential{} }

// BearerToken returns a credential holding a real token.
// An empty token yields NoCredential.
func BearerToken(token string) Credential {
	if token == "" {
		return Credential{}
	}

	return Credential{kind: kindBearer, token: token}
}

// CookieDelegated returns the sentinel credential meaning "trust the
// http-only cookie".
func CookieDelegated() Credential { return Credential{kind: kindCookieDelegated} }

// IsZero reports whether no credential is held at all.
func (c Credential) IsZero() bool { return c.kind == kindNone }

// Token returns the bearer token and true only for the BearerToken variant.
func (c Credential) Token() (string, bool) {
	if c.kind != kindBearer {
		return "", false
	}

	return c.token, true
}

// Delegated reports whether trust is delegated to the http-only cookie.
func (c Credential) Delegated() bool { return c.kind == kindCookieDelegated }

// Origin records how the current session state was established.
type Origin string

const (
	OriginNone   Origin = "none"
	OriginMemory Origin = "memory" // explicit login in this process
	OriginCookie Origin = "cookie" // read back from the client-visible store
	OriginProbe  Origin = "probe"  // verified against the backend
)

// SessionState holds the current credential. Defined at the consumer (obp)
// per Go convention "accept interfaces, return structs"; the session package
// provides the real implementation.
type SessionState interface {
	Credential() Credential
	SetCredential(cred Credential, via Origin)
	Clear()
}

// PersistedCredential reads the client-visible credential store, if any.
// Implementations return ok=false for missing or expired credentials.
type PersistedCredential interface {
	Load() (token string, ok bool)
}
