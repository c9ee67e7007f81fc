package compile

import (
	"fmt"

	"github.com/stackaccel/identity-compiler/internal/config"
)

// GroupDefinition is one resolved IAM group.
type GroupDefinition struct {
	Name            string
	ManagedPolicies []ResolvedPolicy
}

// CompileGroup resolves one group configuration entry.
func CompileGroup(gc config.GroupConfig, reg *PolicyRegistry, env *Env) (*GroupDefinition, error) {
	policies, err := ResolveManagedPolicies(gc.Name, gc.Policies.AwsManaged, gc.Policies.CustomerManaged, reg, env.Partition)
	if err != nil {
		return nil, err
	}
	if len(gc.Policies.AwsManaged) > 0 {
		env.suppress(fmt.Sprintf("iam/group/%s", gc.Name), "AwsSolutions-IAM4",
			"AWS-managed policies are attached explicitly by the identity configuration")
	}
	return &GroupDefinition{Name: gc.Name, ManagedPolicies: policies}, nil
}
