package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/stackaccel/identity-compiler/internal/awssdk"
	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/config"
	"github.com/stackaccel/identity-compiler/internal/documents"
)

var _ datasource.DataSource = (*planDataSource)(nil)

// NewPlanDataSource creates the identitycompiler_plan data source.
func NewPlanDataSource() datasource.DataSource { return &planDataSource{} }

type planDataSource struct{}

type planModel struct {
	ID types.String `tfsdk:"id"`

	ConfigFile      types.String `tfsdk:"config_file"`
	ConfigYaml      types.String `tfsdk:"config_yaml"`
	AccountID       types.String `tfsdk:"account_id"`
	Region          types.String `tfsdk:"region"`
	Partition       types.String `tfsdk:"partition"`
	InstanceArn     types.String `tfsdk:"instance_arn"`
	IdentityStoreID types.String `tfsdk:"identity_store_id"`
	AccountIDs      types.Map    `tfsdk:"account_ids"`
	ProviderArns    types.Map    `tfsdk:"provider_arns"`
	PrincipalIDs    types.Map    `tfsdk:"principal_ids"`
	DocumentsDir    types.String `tfsdk:"documents_dir"`

	PlanJSON           types.String `tfsdk:"plan_json"`
	PolicyCount        types.Int64  `tfsdk:"policy_count"`
	RoleCount          types.Int64  `tfsdk:"role_count"`
	PermissionSetCount types.Int64  `tfsdk:"permission_set_count"`
	AssignmentCount    types.Int64  `tfsdk:"assignment_count"`
}

func (d *planDataSource) Metadata(_ context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_plan"
}

func (d *planDataSource) Schema(_ context.Context, _ datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "Compile a declarative identity configuration into a dependency-ordered plan of IAM and Identity Center resource definitions.",
		Attributes: map[string]schema.Attribute{
			"id":          schema.StringAttribute{Computed: true},
			"config_file": schema.StringAttribute{Optional: true, Description: "Path to the identity configuration YAML. Conflicts with config_yaml."},
			"config_yaml": schema.StringAttribute{Optional: true, Description: "Inline identity configuration YAML."},
			"account_id":  schema.StringAttribute{Required: true},
			"region":      schema.StringAttribute{Required: true},
			"partition":   schema.StringAttribute{Optional: true, Description: "Partition override; derived from the region when unset."},
			"instance_arn": schema.StringAttribute{
				Optional:    true,
				Description: "Identity Center instance ARN; discovered from the live account when unset.",
			},
			"identity_store_id": schema.StringAttribute{Optional: true},
			"account_ids":       schema.MapAttribute{Optional: true, ElementType: types.StringType, Description: "Account name to id table."},
			"provider_arns":     schema.MapAttribute{Optional: true, ElementType: types.StringType, Description: "Identity provider name to ARN table."},
			"principal_ids":     schema.MapAttribute{Optional: true, ElementType: types.StringType, Description: "Principal TYPE/name to id table; bypasses identity store lookups."},
			"documents_dir":     schema.StringAttribute{Optional: true, Description: "Base directory for policy documents; defaults to the configuration file's directory."},

			"plan_json":            schema.StringAttribute{Computed: true, Description: "The compiled plan as JSON."},
			"policy_count":         schema.Int64Attribute{Computed: true},
			"role_count":           schema.Int64Attribute{Computed: true},
			"permission_set_count": schema.Int64Attribute{Computed: true},
			"assignment_count":     schema.Int64Attribute{Computed: true},
		},
	}
}

func (d *planDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data planModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	cfg, baseDir, err := loadConfig(data)
	if err != nil {
		resp.Diagnostics.AddError("Invalid identity configuration", err.Error())
		return
	}

	partition := data.Partition.ValueString()
	if partition == "" {
		partition = awssdk.PartitionForRegion(data.Region.ValueString())
	}

	env, copts, err := buildEnv(ctx, cfg, data, partition, baseDir, resp)
	if err != nil {
		resp.Diagnostics.AddError("Compiler environment setup failed", err.Error())
		return
	}

	target := compile.Target{AccountID: data.AccountID.ValueString(), Region: data.Region.ValueString()}
	plan, err := compile.Compile(ctx, cfg, target, copts, env)
	if err != nil {
		resp.Diagnostics.AddError("Compilation failed", err.Error())
		return
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		resp.Diagnostics.AddError("Plan encoding failed", err.Error())
		return
	}

	data.ID = types.StringValue(fmt.Sprintf("%s/%s", target.AccountID, target.Region))
	data.PlanJSON = types.StringValue(string(raw))
	data.PolicyCount = types.Int64Value(int64(len(plan.Policies)))
	data.RoleCount = types.Int64Value(int64(len(plan.Roles)))
	data.PermissionSetCount = types.Int64Value(int64(len(plan.PermissionSets)))
	data.AssignmentCount = types.Int64Value(int64(len(plan.Assignments)))
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func loadConfig(data planModel) (*config.Config, string, error) {
	file := data.ConfigFile.ValueString()
	inline := data.ConfigYaml.ValueString()
	switch {
	case file != "" && inline != "":
		return nil, "", fmt.Errorf("config_file and config_yaml are mutually exclusive")
	case file != "":
		cfg, err := config.Load(file)
		if err != nil {
			return nil, "", err
		}
		return cfg, config.Dir(file), nil
	case inline != "":
		cfg, err := config.Parse([]byte(inline))
		if err != nil {
			return nil, "", err
		}
		return cfg, ".", nil
	}
	return nil, "", fmt.Errorf("one of config_file or config_yaml is required")
}

// buildEnv wires the compiler's collaborators and per-run options from data
// source inputs, falling back to live AWS lookups only where the
// configuration needs them.
func buildEnv(ctx context.Context, cfg *config.Config, data planModel, partition, baseDir string, resp *datasource.ReadResponse) (*compile.Env, compile.Options, error) {
	docsDir := baseDir
	if v := data.DocumentsDir.ValueString(); v != "" {
		docsDir = v
	}

	accountIDs, err := stringMap(ctx, data.AccountIDs)
	if err != nil {
		return nil, compile.Options{}, err
	}
	providerArns, err := stringMap(ctx, data.ProviderArns)
	if err != nil {
		return nil, compile.Options{}, err
	}
	principalIDs, err := stringMap(ctx, data.PrincipalIDs)
	if err != nil {
		return nil, compile.Options{}, err
	}

	providers := compile.MapProviders(providerArns)
	for _, pc := range cfg.Providers {
		if _, ok := providers[pc.Name]; !ok {
			providers[pc.Name] = fmt.Sprintf("arn:%s:iam::%s:saml-provider/%s", partition, data.AccountID.ValueString(), pc.Name)
		}
	}

	env := &compile.Env{
		Partition: partition,
		Accounts:  compile.MapAccounts(accountIDs),
		Providers: providers,
		Targets:   compile.LiteralTargets{},
		Documents: documents.FileLoader{BaseDir: docsDir},
		Log:       diagnosticsLogger{resp: resp},
	}
	if len(principalIDs) > 0 {
		env.Metadata = compile.MapMetadata(principalIDs)
	}

	if data.DocumentsDir.ValueString() != "" {
		extra, err := documents.Unreferenced(docsDir, cfg.DocumentPaths())
		if err != nil {
			return nil, compile.Options{}, err
		}
		for _, doc := range extra {
			env.Log.Warnf("policy document %s is not referenced by the configuration", doc)
		}
	}

	opts := compile.Options{
		InstanceArn:     data.InstanceArn.ValueString(),
		IdentityStoreID: data.IdentityStoreID.ValueString(),
	}

	needsOrg := usesOrganizationalUnits(cfg)
	needsInstance := cfg.IdentityCenter != nil && opts.InstanceArn == ""
	needsMetadata := env.Metadata == nil && usesSymbolicPrincipals(cfg)
	needsPolicies := len(cfg.ExternalPolicyRefs()) > 0

	if needsOrg || needsInstance || needsMetadata || needsPolicies {
		awsCfg, err := awssdk.LoadDefault(ctx, data.Region.ValueString())
		if err != nil {
			return nil, compile.Options{}, err
		}
		if needsOrg {
			expander, err := awssdk.NewOrganizationsExpander(ctx, organizations.NewFromConfig(awsCfg))
			if err != nil {
				return nil, compile.Options{}, err
			}
			env.Targets = expander
			if len(accountIDs) == 0 {
				env.Accounts = expander
			}
		}
		if needsInstance {
			inst, err := awssdk.DiscoverInstance(ctx, ssoadmin.NewFromConfig(awsCfg))
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
			if err := awssdk.WarmPolicyRegistry(ctx, iam.NewFromConfig(awsCfg), external); err != nil {
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

func usesOrganizationalUnits(cfg *config.Config) bool {
	var targets []config.DeploymentTargets
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

func usesSymbolicPrincipals(cfg *config.Config) bool {
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

func stringMap(ctx context.Context, m types.Map) (map[string]string, error) {
	out := map[string]string{}
	if m.IsNull() || m.IsUnknown() {
		return out, nil
	}
	diags := m.ElementsAs(ctx, &out, false)
	if diags.HasError() {
		return nil, fmt.Errorf("invalid map attribute: %v", diags.Errors())
	}
	return out, nil
}

// diagnosticsLogger surfaces compiler warnings as Terraform diagnostics.
type diagnosticsLogger struct {
	resp *datasource.ReadResponse
}

func (diagnosticsLogger) Debugf(string, ...any) {}

func (diagnosticsLogger) Infof(string, ...any) {}

func (l diagnosticsLogger) Warnf(format string, args ...any) {
	l.resp.Diagnostics.AddWarning("Identity configuration", fmt.Sprintf(format, args...))
}
