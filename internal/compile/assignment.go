package compile

import (
	"context"
	"fmt"

	"github.com/stackaccel/identity-compiler/internal/config"
)

// AssignmentDefinition binds one resolved principal, one permission set, and
// one target account. Assignments for the same (assignment name, target
// account) pair form a strict linear chain via DependsOn, serializing
// creation against the same target/permission-set combination; assignments
// across different pairs are independent.
type AssignmentDefinition struct {
	LogicalID string
	Name      string
	// PermissionSetArnRef is the logical id of the permission set, resolved
	// by name from the registry. Empty when the name was never registered;
	// a warning is logged so the operator can fix the configuration.
	PermissionSetArnRef string
	PrincipalType       string
	PrincipalID         string
	TargetAccountID     string
	InstanceArn         string
	DependsOn           []string
}

// CompileAssignments expands every assignment entry over its deployment
// targets and resolved principals, in configuration order. The singular
// principalId/principalType pair (legacy) and the symbolic principal list
// (expanded) are not mutually exclusive; both fire when both are configured.
func CompileAssignments(ctx context.Context, ic *config.IdentityCenterConfig, psReg *PermissionSetRegistry, instanceArn, identityStoreID string, env *Env) ([]AssignmentDefinition, error) {
	if ic == nil {
		return nil, nil
	}
	var out []AssignmentDefinition

	for _, ac := range ic.Assignments {
		arnRef, ok := psReg.ArnRef(ac.PermissionSetName)
		if !ok {
			env.logger().Warnf("assignment %q references permission set %q which is not part of this run; the ARN reference will be empty", ac.Name, ac.PermissionSetName)
		}

		accounts, err := env.Targets.AccountIDs(ac.DeploymentTargets)
		if err != nil {
			return nil, err
		}

		var resolved []PrincipalMetadata
		if len(ac.Principals) > 0 {
			resolved, err = env.Metadata.ResolvePrincipals(ctx, ac.Principals, identityStoreID)
			if err != nil {
				return nil, err
			}
		}

		for _, account := range accounts {
			// prev threads the intra-group chain: each emitted assignment for
			// this (name, account) pair depends on the one before it.
			prev := ""
			seq := 0

			emit := func(principalType, principalID string) {
				seq++
				def := AssignmentDefinition{
					LogicalID:           fmt.Sprintf("assignment/%s/%s/%d", ac.Name, account, seq),
					Name:                ac.Name,
					PermissionSetArnRef: arnRef,
					PrincipalType:       principalType,
					PrincipalID:         principalID,
					TargetAccountID:     account,
					InstanceArn:         instanceArn,
				}
				if prev != "" {
					def.DependsOn = []string{prev}
				}
				prev = def.LogicalID
				out = append(out, def)
			}

			if ac.PrincipalID != "" && ac.PrincipalType != "" {
				emit(ac.PrincipalType, ac.PrincipalID)
			}
			for _, p := range resolved {
				emit(p.Type, p.ID)
			}
		}
	}
	return out, nil
}
