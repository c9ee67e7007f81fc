package compile

import (
	"context"

	"github.com/stackaccel/identity-compiler/internal/config"
)

// PolicyDefinition is one resolved customer-managed policy: name plus its
// parsed, substituted document.
type PolicyDefinition struct {
	Name     string
	Document *PolicyDocument
}

// Plan is the ordered output of one compilation run for one deployment
// target. Slice order is creation order; dependency edges between
// definitions of the same kind are carried on the definitions themselves.
type Plan struct {
	Target Target

	Policies       []PolicyDefinition
	Roles          []RoleDefinition
	Groups         []GroupDefinition
	Users          []UserDefinition
	PermissionSets []PermissionSetDefinition
	Assignments    []AssignmentDefinition
}

// Options carries per-run inputs that are not part of the configuration.
type Options struct {
	// InstanceArn of the Identity Center instance; required when the
	// configuration carries an identityCenter block.
	InstanceArn string
	// IdentityStoreID backing principal metadata resolution.
	IdentityStoreID string
	// ExternalPolicies pre-registers customer-managed policies provisioned
	// outside this configuration, so references to them resolve instead of
	// failing. Policies declared by the configuration's own policy sets
	// override same-named entries.
	ExternalPolicies *PolicyRegistry
}

// Compile evaluates the configuration for one deployment target. Policy sets
// compile first and populate the policy registry, satisfying the invariant
// that a customer-managed policy registers before anything references it.
// Compilation iterates entries strictly in declared order; the dependency
// chains recorded on permission sets and assignments encode compile order.
func Compile(ctx context.Context, cfg *config.Config, target Target, opts Options, env *Env) (*Plan, error) {
	plan := &Plan{Target: target}
	reg := NewPolicyRegistry()
	if opts.ExternalPolicies != nil {
		for _, p := range opts.ExternalPolicies.All() {
			reg.Register(p)
		}
	}
	vars := substitutionVars(target, env)

	for _, ps := range cfg.PolicySets {
		in, err := env.Targets.Included(ps.DeploymentTargets, target.AccountID)
		if err != nil {
			return nil, err
		}
		if !in {
			continue
		}
		for _, pc := range ps.Policies {
			doc, err := ResolveInlineDocument(pc.Name, pc.Document, vars, env)
			if err != nil {
				return nil, err
			}
			plan.Policies = append(plan.Policies, PolicyDefinition{Name: pc.Name, Document: doc})
			reg.Register(ResolvedPolicy{
				Name:   pc.Name,
				Source: PolicyCustomerManaged,
				Arn:    customerManagedPolicyArn(env.Partition, target.AccountID, pc.Name),
			})
		}
	}

	for _, rs := range cfg.RoleSets {
		in, err := env.Targets.Included(rs.DeploymentTargets, target.AccountID)
		if err != nil {
			return nil, err
		}
		if !in {
			continue
		}
		for _, rc := range rs.Roles {
			role, err := CompileRole(rc, rs.Path, reg, env)
			if err != nil {
				return nil, err
			}
			plan.Roles = append(plan.Roles, *role)
		}
	}

	for _, gs := range cfg.GroupSets {
		in, err := env.Targets.Included(gs.DeploymentTargets, target.AccountID)
		if err != nil {
			return nil, err
		}
		if !in {
			continue
		}
		for _, gc := range gs.Groups {
			group, err := CompileGroup(gc, reg, env)
			if err != nil {
				return nil, err
			}
			plan.Groups = append(plan.Groups, *group)
		}
	}

	for _, us := range cfg.UserSets {
		in, err := env.Targets.Included(us.DeploymentTargets, target.AccountID)
		if err != nil {
			return nil, err
		}
		if !in {
			continue
		}
		for _, uc := range us.Users {
			user, err := CompileUser(uc, reg, env)
			if err != nil {
				return nil, err
			}
			plan.Users = append(plan.Users, *user)
		}
	}

	sets, psReg, err := CompilePermissionSets(cfg.IdentityCenter, opts.InstanceArn, vars, reg, env)
	if err != nil {
		return nil, err
	}
	plan.PermissionSets = sets

	assignments, err := CompileAssignments(ctx, cfg.IdentityCenter, psReg, opts.InstanceArn, opts.IdentityStoreID, env)
	if err != nil {
		return nil, err
	}
	plan.Assignments = assignments

	return plan, nil
}

// CompileAll evaluates the same configuration independently per target, each
// producing its own plan.
func CompileAll(ctx context.Context, cfg *config.Config, targets []Target, opts Options, env *Env) ([]*Plan, error) {
	plans := make([]*Plan, 0, len(targets))
	for _, t := range targets {
		p, err := Compile(ctx, cfg, t, opts, env)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func substitutionVars(target Target, env *Env) map[string]string {
	return map[string]string{
		"ACCOUNT_ID": target.AccountID,
		"REGION":     target.Region,
		"PARTITION":  env.Partition,
	}
}

func customerManagedPolicyArn(partition, accountID, name string) string {
	return "arn:" + partition + ":iam::" + accountID + ":policy/" + name
}
