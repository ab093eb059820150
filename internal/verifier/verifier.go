package verifier

import "context"

// Identity is the verified subject returned by an identity provider. The
// core never inspects the raw credential itself.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	Role        string
}

// Verifier turns a bearer credential into a verified identity or fails.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}
