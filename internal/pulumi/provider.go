// Package provider implements the Pulumi component that compiles an identity
// configuration and materializes the resulting IAM and Identity Center
// resources.
package provider

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	p "github.com/pulumi/pulumi-go-provider"
	"github.com/pulumi/pulumi-go-provider/infer"
	"github.com/pulumi/pulumi/sdk/v3/go/common/tokens"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/stackaccel/identity-compiler/internal/awssdk"
	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/config"
	"github.com/stackaccel/identity-compiler/internal/documents"
)

// NewProvider builds the component provider.
func NewProvider() (p.Provider, error) {
	return infer.NewProviderBuilder().
		WithComponents(infer.ComponentF(NewIdentityConfig)).
		Build()
}

// IdentityConfigArgs defines the inputs for the component resource.
type IdentityConfigArgs struct {
	// Path to the identity configuration YAML. Exactly one of ConfigFile and
	// ConfigYaml must be set.
	ConfigFile *string `pulumi:"configFile,optional"`
	// Inline identity configuration YAML.
	ConfigYaml *string `pulumi:"configYaml,optional"`
	// Target account and region this stack deploys into.
	AccountID string `pulumi:"accountId"`
	Region    string `pulumi:"region"`
	// Partition override; derived from the region when unset.
	Partition *string `pulumi:"partition,optional"`
	// Identity Center instance ARN and identity store id. Discovered from the
	// live account when unset and the configuration carries an identityCenter
	// block.
	InstanceArn     *string `pulumi:"instanceArn,optional"`
	IdentityStoreID *string `pulumi:"identityStoreId,optional"`
	// Account name to id table. When unset and the configuration references
	// accounts or organizational units symbolically, the organization is
	// queried instead.
	AccountIDs map[string]string `pulumi:"accountIds,optional"`
	// Identity provider name to ARN table for providers created outside this
	// component.
	ProviderArns map[string]string `pulumi:"providerArns,optional"`
	// Principal "TYPE/name" to id table. When unset, symbolic assignment
	// principals resolve against the identity store.
	PrincipalIDs map[string]string `pulumi:"principalIds,optional"`
	// Base directory for policy documents; defaults to the configuration
	// file's directory.
	DocumentsDir *string `pulumi:"documentsDir,optional"`
}

// IdentityConfig is the component implementing the Construct. It exposes the
// ARNs of the created resources keyed by their configuration names.
type IdentityConfig struct {
	pulumi.ResourceState

	PolicyArns        pulumi.StringMapOutput `pulumi:"policyArns"`
	RoleArns          pulumi.StringMapOutput `pulumi:"roleArns"`
	PermissionSetArns pulumi.StringMapOutput `pulumi:"permissionSetArns"`
	AssignmentCount   pulumi.IntOutput       `pulumi:"assignmentCount"`
}

// Annotate attaches schema metadata used for provider docs and code generation.
func (c *IdentityConfig) Annotate(a infer.Annotator) {
	a.Describe(&c, "Compile a declarative identity configuration and provision the resulting IAM roles, policies, groups, users, Identity Center permission sets and account assignments.")
	a.SetToken(tokens.ModuleName("identity-compiler"), tokens.TypeName("IdentityConfig"))
}

// NewIdentityConfig is the component constructor used by infer.Component.
func NewIdentityConfig(
	ctx *pulumi.Context,
	name string,
	args IdentityConfigArgs,
	opts ...pulumi.ResourceOption,
) (*IdentityConfig, error) {
	comp := &IdentityConfig{}
	const componentType = "identity-compiler:index:IdentityConfig"
	if err := ctx.RegisterComponentResource(componentType, name, comp, opts...); err != nil {
		return nil, err
	}
	childOpts := append([]pulumi.ResourceOption{}, opts...)
	childOpts = append(childOpts, pulumi.Parent(comp))

	cfg, baseDir, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	partition := awssdk.PartitionForRegion(args.Region)
	if args.Partition != nil && *args.Partition != "" {
		partition = *args.Partition
	}

	env, copts, err := buildEnv(ctx, cfg, args, partition, baseDir)
	if err != nil {
		return nil, err
	}

	target := compile.Target{AccountID: args.AccountID, Region: args.Region}
	plan, err := compile.Compile(ctx.Context(), cfg, target, copts, env)
	if err != nil {
		return nil, err
	}

	out, err := renderPlan(ctx, name, cfg, plan, partition, env.Documents, childOpts)
	if err != nil {
		return nil, err
	}

	comp.PolicyArns = out.policyArns
	comp.RoleArns = out.roleArns
	comp.PermissionSetArns = out.permissionSetArns
	comp.AssignmentCount = pulumi.Int(len(plan.Assignments)).ToIntOutput()
	return comp, nil
}

func loadConfig(args IdentityConfigArgs) (*config.Config, string, error) {
	switch {
	case args.ConfigFile != nil && args.ConfigYaml != nil:
		return nil, "", fmt.Errorf("configFile and configYaml are mutually exclusive")
	case args.ConfigFile != nil:
		cfg, err := config.Load(*args.ConfigFile)
		if err != nil {
			return nil, "", err
		}
		return cfg, config.Dir(*args.ConfigFile), nil
	case args.ConfigYaml != nil:
		cfg, err := config.Parse([]byte(*args.ConfigYaml))
		if err != nil {
			return nil, "", err
		}
		return cfg, ".", nil
	}
	return nil, "", fmt.Errorf("one of configFile or configYaml is required")
}

// buildEnv wires the compiler's collaborators and per-run options. Static
// tables from the args win; live AWS lookups fill the gaps only when the
// configuration actually needs them.
func buildEnv(ctx *pulumi.Context, cfg *config.Config, args IdentityConfigArgs, partition, baseDir string) (*compile.Env, compile.Options, error) {
	docsDir := baseDir
	if args.DocumentsDir != nil && *args.DocumentsDir != "" {
		docsDir = *args.DocumentsDir
	}

	providers := compile.MapProviders{}
	for name, arn := range args.ProviderArns {
		providers[name] = arn
	}
	// Providers declared in the configuration are created by this component;
	// IAM SAML provider ARNs are deterministic, so compilation can reference
	// them before the resources exist.
	for _, pc := range cfg.Providers {
		if _, ok := providers[pc.Name]; !ok {
			providers[pc.Name] = fmt.Sprintf("arn:%s:iam::%s:saml-provider/%s", partition, args.AccountID, pc.Name)
		}
	}

	env := &compile.Env{
		Partition: partition,
		Accounts:  compile.MapAccounts(args.AccountIDs),
		Providers: providers,
		Targets:   compile.LiteralTargets{},
		Documents: documents.FileLoader{BaseDir: docsDir},
		Log:       pulumiLogger{ctx: ctx},
	}
	if args.PrincipalIDs != nil {
		env.Metadata = compile.MapMetadata(args.PrincipalIDs)
	}

	if args.DocumentsDir != nil && *args.DocumentsDir != "" {
		extra, err := documents.Unreferenced(docsDir, cfg.DocumentPaths())
		if err != nil {
			return nil, compile.Options{}, err
		}
		for _, doc := range extra {
			env.Log.Warnf("policy document %s is not referenced by the configuration", doc)
		}
	}

	opts := compile.Options{
		InstanceArn:     stringOr(args.InstanceArn, ""),
		IdentityStoreID: stringOr(args.IdentityStoreID, ""),
	}

	needsOrg := configUsesOrganizationalUnits(cfg)
	needsInstance := cfg.IdentityCenter != nil && opts.InstanceArn == ""
	needsMetadata := env.Metadata == nil && configUsesSymbolicPrincipals(cfg)
	needsPolicies := len(cfg.ExternalPolicyRefs()) > 0

	if needsOrg || needsInstance || needsMetadata || needsPolicies {
		awsCfg, err := awssdk.LoadDefault(ctx.Context(), args.Region)
		if err != nil {
			return nil, compile.Options{}, err
		}
		if needsOrg {
			expander, err := awssdk.NewOrganizationsExpander(ctx.Context(), organizations.NewFromConfig(awsCfg))
			if err != nil {
				return nil, compile.Options{}, err
			}
			env.Targets = expander
			if len(args.AccountIDs) == 0 {
				env.Accounts = expander
			}
		}
		if needsInstance {
			inst, err := awssdk.DiscoverInstance(ctx.Context(), ssoadmin.NewFromConfig(awsCfg))
			if err != nil {
				return nil, compile.Options{}, err
			}
			opts.InstanceArn = inst.InstanceArn
			if opts.IdentityStoreID == "" {
				opts.IdentityStoreID = inst.IdentityStoreID
			}
		}
		if needsMetadata {
			env.Metadata = awssdk.NewIdentityStoreResolver(identitystore.NewFromConfig(awsCfg))
		}
		if needsPolicies {
			external := compile.NewPolicyRegistry()
			if err := awssdk.WarmPolicyRegistry(ctx.Context(), iam.NewFromConfig(awsCfg), external); err != nil {
				return nil, compile.Options{}, err
			}
			opts.ExternalPolicies = external
		}
	}
	if env.Metadata == nil {
		env.Metadata = compile.MapMetadata{}
	}
	return env, opts, nil
}

func configUsesOrganizationalUnits(cfg *config.Config) bool {
	targets := []config.DeploymentTargets{}
	for _, s := range cfg.PolicySets {
		targets = append(targets, s.DeploymentTargets)
	}
	for _, s := range cfg.RoleSets {
		targets = append(targets, s.DeploymentTargets)
	}
	for _, s := range cfg.GroupSets {
		targets = append(targets, s.DeploymentTargets)
	}
	for _, s := range cfg.UserSets {
		targets = append(targets, s.DeploymentTargets)
	}
	if cfg.IdentityCenter != nil {
		for _, a := range cfg.IdentityCenter.Assignments {
			targets = append(targets, a.DeploymentTargets)
		}
	}
	for _, t := range targets {
		if len(t.OrganizationalUnits) > 0 {
			return true
		}
	}
	return false
}

func configUsesSymbolicPrincipals(cfg *config.Config) bool {
	if cfg.IdentityCenter == nil {
		return false
	}
	for _, a := range cfg.IdentityCenter.Assignments {
		if len(a.Principals) > 0 {
			return true
		}
	}
	return false
}

func stringOr(p *string, def string) string {
	if p != nil && *p != "" {
		return *p
	}
	return def
}

// pulumiLogger forwards compiler diagnostics to the Pulumi engine.
type pulumiLogger struct {
	ctx *pulumi.Context
}

func (l pulumiLogger) Debugf(format string, args ...any) {
	_ = l.ctx.Log.Debug(fmt.Sprintf(format, args...), nil)
}

func (l pulumiLogger) Infof(format string, args ...any) {
	_ = l.ctx.Log.Info(fmt.Sprintf(format, args...), nil)
}

func (l pulumiLogger) Warnf(format string, args ...any) {
	_ = l.ctx.Log.Warn(fmt.Sprintf(format, args...), nil)
}
