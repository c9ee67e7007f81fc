package compile

import (
	"fmt"
	"sort"

	awsarn "github.com/aws/aws-sdk-go-v2/aws/arn"
)

// PolicySource distinguishes where a resolved policy's ARN comes from.
type PolicySource string

const (
	// PolicyAWSManaged policies resolve by well-known name under the aws
	// namespace account and are assumed valid.
	PolicyAWSManaged PolicySource = "aws-managed"
	// PolicyCustomerManaged policies must be registered before anything
	// references them.
	PolicyCustomerManaged PolicySource = "customer-managed"
)

// ResolvedPolicy is a concrete attachable policy handle.
type ResolvedPolicy struct {
	Name   string
	Source PolicySource
	Arn    string
}

// PolicyRegistry maps customer-managed policy names to resolved handles.
// It is populated by the policy-set compiler (or a live warm-up) before any
// role or permission set referencing those names is compiled; resolving an
// unregistered name is an error, not a silent no-op.
type PolicyRegistry struct {
	policies map[string]ResolvedPolicy
}

// NewPolicyRegistry returns an empty registry.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{policies: map[string]ResolvedPolicy{}}
}

// Register records a customer-managed policy handle. Later registrations for
// the same name replace earlier ones.
func (r *PolicyRegistry) Register(p ResolvedPolicy) {
	r.policies[p.Name] = p
}

// Lookup returns the handle registered under name.
func (r *PolicyRegistry) Lookup(name string) (ResolvedPolicy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Names returns the registered policy names in sorted order.
func (r *PolicyRegistry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for n := range r.policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns the registered handles in name order.
func (r *PolicyRegistry) All() []ResolvedPolicy {
	out := make([]ResolvedPolicy, 0, len(r.policies))
	for _, n := range r.Names() {
		out = append(out, r.policies[n])
	}
	return out
}

// AwsManagedPolicyArn expands a well-known AWS-managed policy name into a
// full ARN for the partition. A value already shaped like an ARN passes
// through unchanged.
func AwsManagedPolicyArn(partition, name string) string {
	if awsarn.IsARN(name) {
		return name
	}
	return fmt.Sprintf("arn:%s:iam::aws:policy/%s", partition, name)
}

// ResolveManagedPolicies collapses AWS-managed and customer-managed policy
// name lists into concrete handles. Customer-managed names resolve against
// the registry; a missing name fails with UnregisteredPolicyError naming the
// configuration entry.
func ResolveManagedPolicies(entry string, awsManaged, customerManaged []string, reg *PolicyRegistry, partition string) ([]ResolvedPolicy, error) {
	out := make([]ResolvedPolicy, 0, len(awsManaged)+len(customerManaged))
	for _, name := range awsManaged {
		out = append(out, ResolvedPolicy{
			Name:   name,
			Source: PolicyAWSManaged,
			Arn:    AwsManagedPolicyArn(partition, name),
		})
	}
	for _, name := range customerManaged {
		p, ok := reg.Lookup(name)
		if !ok {
			return nil, &UnregisteredPolicyError{Entry: entry, Policy: name}
		}
		out = append(out, p)
	}
	return out, nil
}

// ResolveBoundary resolves a permission-boundary reference by registered
// name. An empty name means no boundary.
func ResolveBoundary(entry, name string, reg *PolicyRegistry) (*ResolvedPolicy, error) {
	if name == "" {
		return nil, nil
	}
	p, ok := reg.Lookup(name)
	if !ok {
		return nil, &UnregisteredPolicyError{Entry: entry, Policy: name}
	}
	return &p, nil
}
