package provider

import (
	"fmt"
	"strings"

	awsiam "github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	awsssoadmin "github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ssoadmin"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/config"
)

// renderedOutputs collects the component-level outputs of one rendered plan.
type renderedOutputs struct {
	policyArns        pulumi.StringMapOutput
	roleArns          pulumi.StringMapOutput
	permissionSetArns pulumi.StringMapOutput
}

// renderPlan materializes a compiled plan as child resources. Dependency
// edges recorded on the definitions become pulumi.DependsOn options through
// the logical-id table.
func renderPlan(ctx *pulumi.Context, name string, cfg *config.Config, plan *compile.Plan, partition string, docs compile.DocumentLoader, opts []pulumi.ResourceOption) (*renderedOutputs, error) {
	byLogicalID := map[string]pulumi.Resource{}

	if err := renderSamlProviders(ctx, name, cfg.Providers, docs, opts); err != nil {
		return nil, err
	}

	policies := map[string]*awsiam.Policy{}
	policyArns := pulumi.StringMap{}
	for _, pd := range plan.Policies {
		pol, err := awsiam.NewPolicy(ctx, childName(name, "policy", pd.Name), &awsiam.PolicyArgs{
			Name:   pulumi.String(pd.Name),
			Policy: pulumi.String(pd.Document.JSON),
		}, opts...)
		if err != nil {
			return nil, err
		}
		policies[pd.Name] = pol
		policyArns[pd.Name] = pol.Arn
	}

	roleArns := pulumi.StringMap{}
	for _, rd := range plan.Roles {
		role, err := renderRole(ctx, name, rd, partition, policies, opts)
		if err != nil {
			return nil, err
		}
		roleArns[rd.Name] = role.Arn
	}

	groups := map[string]*awsiam.Group{}
	for _, gd := range plan.Groups {
		group, err := renderGroup(ctx, name, gd, policies, opts)
		if err != nil {
			return nil, err
		}
		groups[gd.Name] = group
	}

	for _, ud := range plan.Users {
		if err := renderUser(ctx, name, ud, groups, policies, opts); err != nil {
			return nil, err
		}
	}

	permissionSetArns := pulumi.StringMap{}
	permissionSets := map[string]*awsssoadmin.PermissionSet{}
	for _, psd := range plan.PermissionSets {
		ps, err := renderPermissionSet(ctx, name, psd, policies, byLogicalID, opts)
		if err != nil {
			return nil, err
		}
		byLogicalID[psd.LogicalID] = ps
		permissionSets[psd.LogicalID] = ps
		permissionSetArns[psd.Name] = ps.Arn
	}

	for _, ad := range plan.Assignments {
		asg, err := renderAssignment(ctx, name, ad, permissionSets, byLogicalID, opts)
		if err != nil {
			return nil, err
		}
		byLogicalID[ad.LogicalID] = asg
	}

	return &renderedOutputs{
		policyArns:        policyArns.ToStringMapOutput(),
		roleArns:          roleArns.ToStringMapOutput(),
		permissionSetArns: permissionSetArns.ToStringMapOutput(),
	}, nil
}

func renderSamlProviders(ctx *pulumi.Context, name string, providers []config.SamlProviderConfig, docs compile.DocumentLoader, opts []pulumi.ResourceOption) error {
	for _, pc := range providers {
		metadata, err := docs.Load(pc.MetadataDocument, nil)
		if err != nil {
			return fmt.Errorf("failed to load SAML metadata for provider %q: %w", pc.Name, err)
		}
		_, err = awsiam.NewSamlProvider(ctx, childName(name, "saml", pc.Name), &awsiam.SamlProviderArgs{
			Name:                 pulumi.String(pc.Name),
			SamlMetadataDocument: pulumi.String(string(metadata)),
		}, opts...)
		if err != nil {
			return err
		}
	}
	return nil
}

func renderRole(ctx *pulumi.Context, name string, rd compile.RoleDefinition, partition string, policies map[string]*awsiam.Policy, opts []pulumi.ResourceOption) (*awsiam.Role, error) {
	trust, err := compile.TrustPolicyJSON(partition, rd.Principals)
	if err != nil {
		return nil, fmt.Errorf("role %q: %w", rd.Name, err)
	}

	roleArgs := &awsiam.RoleArgs{
		Name:              pulumi.String(rd.Name),
		AssumeRolePolicy:  pulumi.String(trust),
		ManagedPolicyArns: policyArnArray(rd.ManagedPolicies, policies),
	}
	if rd.Path != "" {
		roleArgs.Path = pulumi.StringPtr(rd.Path)
	}
	if rd.Boundary != nil {
		roleArgs.PermissionsBoundary = policyArnInput(*rd.Boundary, policies)
	}

	role, err := awsiam.NewRole(ctx, childName(name, "role", rd.Name), roleArgs, opts...)
	if err != nil {
		return nil, err
	}

	if rd.InstanceProfile {
		_, err = awsiam.NewInstanceProfile(ctx, childName(name, "instance-profile", rd.Name), &awsiam.InstanceProfileArgs{
			Name: pulumi.String(rd.Name),
			Role: role.Name,
		}, append(opts, pulumi.Parent(role))...)
		if err != nil {
			return nil, err
		}
	}
	return role, nil
}

func renderGroup(ctx *pulumi.Context, name string, gd compile.GroupDefinition, policies map[string]*awsiam.Policy, opts []pulumi.ResourceOption) (*awsiam.Group, error) {
	group, err := awsiam.NewGroup(ctx, childName(name, "group", gd.Name), &awsiam.GroupArgs{
		Name: pulumi.String(gd.Name),
	}, opts...)
	if err != nil {
		return nil, err
	}
	for _, mp := range gd.ManagedPolicies {
		_, err = awsiam.NewGroupPolicyAttachment(ctx, childName(name, "group-attach", gd.Name+"-"+mp.Name), &awsiam.GroupPolicyAttachmentArgs{
			Group:     group.Name,
			PolicyArn: policyArnInput(mp, policies),
		}, append(opts, pulumi.Parent(group))...)
		if err != nil {
			return nil, err
		}
	}
	return group, nil
}

func renderUser(ctx *pulumi.Context, name string, ud compile.UserDefinition, groups map[string]*awsiam.Group, policies map[string]*awsiam.Policy, opts []pulumi.ResourceOption) error {
	userArgs := &awsiam.UserArgs{Name: pulumi.String(ud.Username)}
	if ud.Boundary != nil {
		userArgs.PermissionsBoundary = policyArnInput(*ud.Boundary, policies)
	}
	user, err := awsiam.NewUser(ctx, childName(name, "user", ud.Username), userArgs, opts...)
	if err != nil {
		return err
	}
	if ud.Group == "" {
		return nil
	}
	groupName := pulumi.StringInput(pulumi.String(ud.Group))
	if g, ok := groups[ud.Group]; ok {
		groupName = g.Name
	}
	_, err = awsiam.NewUserGroupMembership(ctx, childName(name, "user-membership", ud.Username), &awsiam.UserGroupMembershipArgs{
		User:   user.Name,
		Groups: pulumi.StringArray{groupName},
	}, append(opts, pulumi.Parent(user))...)
	return err
}

func renderPermissionSet(ctx *pulumi.Context, name string, psd compile.PermissionSetDefinition, policies map[string]*awsiam.Policy, byLogicalID map[string]pulumi.Resource, opts []pulumi.ResourceOption) (*awsssoadmin.PermissionSet, error) {
	psArgs := &awsssoadmin.PermissionSetArgs{
		Name:        pulumi.String(psd.Name),
		InstanceArn: pulumi.String(psd.InstanceArn),
	}
	if psd.SessionDuration != "" {
		psArgs.SessionDuration = pulumi.StringPtr(psd.SessionDuration)
	}

	psOpts := append([]pulumi.ResourceOption{}, opts...)
	if deps := dependencies(psd.DependsOn, byLogicalID); len(deps) > 0 {
		psOpts = append(psOpts, pulumi.DependsOn(deps))
	}
	ps, err := awsssoadmin.NewPermissionSet(ctx, childName(name, "permission-set", psd.Name), psArgs, psOpts...)
	if err != nil {
		return nil, err
	}
	childOpts := append(append([]pulumi.ResourceOption{}, opts...), pulumi.Parent(ps))

	for _, arn := range psd.ManagedPolicyArns {
		_, err = awsssoadmin.NewManagedPolicyAttachment(ctx, childName(name, "ps-managed", psd.Name+"-"+arnSuffix(arn)), &awsssoadmin.ManagedPolicyAttachmentArgs{
			InstanceArn:      pulumi.String(psd.InstanceArn),
			ManagedPolicyArn: pulumi.String(arn),
			PermissionSetArn: ps.Arn,
		}, childOpts...)
		if err != nil {
			return nil, err
		}
	}
	for _, ref := range psd.CustomerManagedPolicyRefs {
		refArgs := awsssoadmin.CustomerManagedPolicyAttachmentCustomerManagedPolicyReferenceArgs{
			Name: pulumi.String(ref.Name),
		}
		if ref.Path != "" {
			refArgs.Path = pulumi.StringPtr(ref.Path)
		}
		_, err = awsssoadmin.NewCustomerManagedPolicyAttachment(ctx, childName(name, "ps-customer", psd.Name+"-"+ref.Name), &awsssoadmin.CustomerManagedPolicyAttachmentArgs{
			InstanceArn:                    pulumi.String(psd.InstanceArn),
			PermissionSetArn:               ps.Arn,
			CustomerManagedPolicyReference: refArgs,
		}, childOpts...)
		if err != nil {
			return nil, err
		}
	}
	if psd.InlinePolicy != nil {
		_, err = awsssoadmin.NewPermissionSetInlinePolicy(ctx, childName(name, "ps-inline", psd.Name), &awsssoadmin.PermissionSetInlinePolicyArgs{
			InstanceArn:      pulumi.String(psd.InstanceArn),
			PermissionSetArn: ps.Arn,
			InlinePolicy:     pulumi.String(psd.InlinePolicy.JSON),
		}, childOpts...)
		if err != nil {
			return nil, err
		}
	}
	if psd.Boundary != nil {
		boundaryArgs := awsssoadmin.PermissionsBoundaryAttachmentPermissionsBoundaryArgs{}
		if psd.Boundary.CustomerManagedPolicy != nil {
			refArgs := &awsssoadmin.PermissionsBoundaryAttachmentPermissionsBoundaryCustomerManagedPolicyReferenceArgs{
				Name: pulumi.String(psd.Boundary.CustomerManagedPolicy.Name),
			}
			if psd.Boundary.CustomerManagedPolicy.Path != "" {
				refArgs.Path = pulumi.StringPtr(psd.Boundary.CustomerManagedPolicy.Path)
			}
			boundaryArgs.CustomerManagedPolicyReference = refArgs
		} else {
			boundaryArgs.ManagedPolicyArn = pulumi.StringPtr(psd.Boundary.ManagedPolicyArn)
		}
		_, err = awsssoadmin.NewPermissionsBoundaryAttachment(ctx, childName(name, "ps-boundary", psd.Name), &awsssoadmin.PermissionsBoundaryAttachmentArgs{
			InstanceArn:         pulumi.String(psd.InstanceArn),
			PermissionSetArn:    ps.Arn,
			PermissionsBoundary: boundaryArgs,
		}, childOpts...)
		if err != nil {
			return nil, err
		}
	}
	return ps, nil
}

func renderAssignment(ctx *pulumi.Context, name string, ad compile.AssignmentDefinition, permissionSets map[string]*awsssoadmin.PermissionSet, byLogicalID map[string]pulumi.Resource, opts []pulumi.ResourceOption) (*awsssoadmin.AccountAssignment, error) {
	// An empty ARN reference means the named permission set is not part of
	// this run; the compiler already warned about it.
	psArn := pulumi.StringInput(pulumi.String(""))
	if ps, ok := permissionSets[ad.PermissionSetArnRef]; ok {
		psArn = ps.Arn
	}

	asgOpts := append([]pulumi.ResourceOption{}, opts...)
	if deps := dependencies(ad.DependsOn, byLogicalID); len(deps) > 0 {
		asgOpts = append(asgOpts, pulumi.DependsOn(deps))
	}
	return awsssoadmin.NewAccountAssignment(ctx, childName(name, "assignment", strings.ReplaceAll(strings.TrimPrefix(ad.LogicalID, "assignment/"), "/", "-")), &awsssoadmin.AccountAssignmentArgs{
		InstanceArn:      pulumi.String(ad.InstanceArn),
		PermissionSetArn: psArn,
		PrincipalId:      pulumi.String(ad.PrincipalID),
		PrincipalType:    pulumi.String(ad.PrincipalType),
		TargetId:         pulumi.String(ad.TargetAccountID),
		TargetType:       pulumi.String("AWS_ACCOUNT"),
	}, asgOpts...)
}

func dependencies(logicalIDs []string, byLogicalID map[string]pulumi.Resource) []pulumi.Resource {
	var deps []pulumi.Resource
	for _, id := range logicalIDs {
		if r, ok := byLogicalID[id]; ok {
			deps = append(deps, r)
		}
	}
	return deps
}

// policyArnInput prefers the live output of a policy created in this run over
// the precomputed ARN.
func policyArnInput(p compile.ResolvedPolicy, policies map[string]*awsiam.Policy) pulumi.StringInput {
	if p.Source == compile.PolicyCustomerManaged {
		if pol, ok := policies[p.Name]; ok {
			return pol.Arn
		}
	}
	return pulumi.String(p.Arn)
}

func policyArnArray(refs []compile.ResolvedPolicy, policies map[string]*awsiam.Policy) pulumi.StringArray {
	arr := make(pulumi.StringArray, 0, len(refs))
	for _, p := range refs {
		arr = append(arr, policyArnInput(p, policies))
	}
	return arr
}

func childName(parent, kind, name string) string {
	return fmt.Sprintf("%s-%s-%s", parent, kind, strings.ToLower(name))
}

// arnSuffix shortens an AWS-managed policy ARN to its final path element for
// resource naming.
func arnSuffix(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}
