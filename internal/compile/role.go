package compile

import (
	"fmt"

	"github.com/stackaccel/identity-compiler/internal/config"
)

// RoleDefinition is one resolved IAM role: exactly one per configuration
// role entry per target account.
type RoleDefinition struct {
	Name string
	// IAM path inherited from the role set.
	Path string
	// Principals is the composite "any of" trust principal. When the single
	// entry is federated, the trust policy uses it alone.
	Principals      []ResolvedPrincipal
	ManagedPolicies []ResolvedPolicy
	Boundary        *ResolvedPolicy
	InstanceProfile bool
}

// Federated reports whether the role trusts a federated identity provider.
func (r *RoleDefinition) Federated() bool {
	return len(r.Principals) == 1 && r.Principals[0].Kind == ResolvedFederated
}

// CompileRole resolves one role configuration entry. Provider-federated
// trust cannot be composed with other principal kinds: a provider reference
// alongside any other reference fails with AmbiguousProviderPrincipalError.
func CompileRole(rc config.RoleConfig, path string, reg *PolicyRegistry, env *Env) (*RoleDefinition, error) {
	principals := make([]ResolvedPrincipal, 0, len(rc.AssumedBy))
	hasProvider := false
	for _, ref := range rc.AssumedBy {
		p, err := ResolvePrincipal(ref, rc.Name, env)
		if err != nil {
			return nil, err
		}
		if p.Kind == ResolvedFederated {
			hasProvider = true
		}
		principals = append(principals, p)
	}
	if hasProvider && len(principals) > 1 {
		return nil, &AmbiguousProviderPrincipalError{Role: rc.Name}
	}

	policies, err := ResolveManagedPolicies(rc.Name, rc.Policies.AwsManaged, rc.Policies.CustomerManaged, reg, env.Partition)
	if err != nil {
		return nil, err
	}
	boundary, err := ResolveBoundary(rc.Name, rc.BoundaryPolicy, reg)
	if err != nil {
		return nil, err
	}

	if len(rc.Policies.AwsManaged) > 0 {
		env.suppress(fmt.Sprintf("iam/role/%s", rc.Name), "AwsSolutions-IAM4",
			"AWS-managed policies are attached explicitly by the identity configuration")
	}

	return &RoleDefinition{
		Name:            rc.Name,
		Path:            path,
		Principals:      principals,
		ManagedPolicies: policies,
		Boundary:        boundary,
		InstanceProfile: rc.InstanceProfile,
	}, nil
}
