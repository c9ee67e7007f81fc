package compile

import "fmt"

// Configuration-correctness errors. All of them are fatal to a compilation
// run: a dangling reference in access-control configuration must never
// silently produce a weaker-than-intended role or permission set. The run
// aborts with the error naming the offending configuration entry.

// UnresolvableAccountReferenceError reports an account principal reference
// that is neither a bare account id, nor a root ARN, nor a known account name.
type UnresolvableAccountReferenceError struct {
	Entry string // role or assignment name
	Value string // the raw reference value
}

func (e *UnresolvableAccountReferenceError) Error() string {
	return fmt.Sprintf("entry %q: account reference %q does not resolve to a known account", e.Entry, e.Value)
}

// UnknownProviderReferenceError reports a reference to an identity provider
// that was never registered.
type UnknownProviderReferenceError struct {
	Entry    string
	Provider string
}

func (e *UnknownProviderReferenceError) Error() string {
	return fmt.Sprintf("entry %q: identity provider %q is not registered", e.Entry, e.Provider)
}

// AmbiguousProviderPrincipalError reports a role trust configuration that
// combines a federated identity provider with other principals. Federated
// trust must stand alone.
type AmbiguousProviderPrincipalError struct {
	Role string
}

func (e *AmbiguousProviderPrincipalError) Error() string {
	return fmt.Sprintf("role %q: an identity provider principal cannot be combined with other principals", e.Role)
}

// UnregisteredPolicyError reports a customer-managed policy reference whose
// name was never registered. This surfaces configuration-ordering bugs before
// anything is deployed with a dangling policy reference.
type UnregisteredPolicyError struct {
	Entry  string
	Policy string
}

func (e *UnregisteredPolicyError) Error() string {
	return fmt.Sprintf("entry %q: customer-managed policy %q is not registered", e.Entry, e.Policy)
}

// MalformedPolicyDocumentError reports a policy document that failed to parse
// after loading and substitution.
type MalformedPolicyDocumentError struct {
	Entry string
	Cause error
}

func (e *MalformedPolicyDocumentError) Error() string {
	return fmt.Sprintf("entry %q: malformed policy document: %v", e.Entry, e.Cause)
}

func (e *MalformedPolicyDocumentError) Unwrap() error { return e.Cause }
