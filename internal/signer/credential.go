package signer

// Credential is the immutable access-key/secret-key/session-token triple
// every signing operation consumes. An empty AccessKeyID is the
// signal to emit the request unsigned rather than an error.
type Credential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// IsAnonymous reports whether cred carries no access key, in which case
// SignHeaders/SignURL must short-circuit to an unsigned but well-formed
// request.
func (c Credential) IsAnonymous() bool { return c.AccessKeyID == "" }
