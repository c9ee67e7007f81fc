// Package config defines the declarative identity-and-access configuration
// model. The same configuration is evaluated independently per deployment
// target; see the compile package for the resolution engine.
package config

import "fmt"

// Config is the root of an identity configuration document.
type Config struct {
	// SAML identity providers declared for the environment. Provider ARNs are
	// resolved through an injected registry at compile time; entries here let
	// the provisioning surface create the providers first.
	Providers []SamlProviderConfig `yaml:"samlProviders,omitempty"`

	PolicySets []PolicySetConfig `yaml:"policySets,omitempty"`
	RoleSets   []RoleSetConfig   `yaml:"roleSets,omitempty"`
	GroupSets  []GroupSetConfig  `yaml:"groupSets,omitempty"`
	UserSets   []UserSetConfig   `yaml:"userSets,omitempty"`

	IdentityCenter *IdentityCenterConfig `yaml:"identityCenter,omitempty"`
}

// DeploymentTargets is an abstract scope over accounts and organizational
// units. The compiler never inspects it beyond handing it to the injected
// target expander.
type DeploymentTargets struct {
	Accounts            []string `yaml:"accounts,omitempty"`
	OrganizationalUnits []string `yaml:"organizationalUnits,omitempty"`
	ExcludedAccounts    []string `yaml:"excludedAccounts,omitempty"`
	ExcludedRegions     []string `yaml:"excludedRegions,omitempty"`
}

// SamlProviderConfig declares a SAML identity provider by name. The metadata
// document path is consumed by the provisioning surface, not the compiler.
type SamlProviderConfig struct {
	Name             string `yaml:"name"`
	MetadataDocument string `yaml:"metadataDocument"`
}

// PolicySetConfig groups customer-managed policies deployed to a common
// scope. Policy sets compile before role sets so every named policy is
// registered before anything references it.
type PolicySetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Policies          []PolicyConfig    `yaml:"policies"`
}

// PolicyConfig names one customer-managed policy and the JSON document that
// backs it, relative to the configuration directory.
type PolicyConfig struct {
	Name     string `yaml:"name"`
	Document string `yaml:"policy"`
}

// RoleSetConfig groups roles deployed to a common scope under a common IAM
// path.
type RoleSetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Path              string            `yaml:"path,omitempty"`
	Roles             []RoleConfig      `yaml:"roles"`
}

// RoleConfig declares one IAM role.
type RoleConfig struct {
	Name            string            `yaml:"name"`
	InstanceProfile bool              `yaml:"instanceProfile,omitempty"`
	AssumedBy       []AssumedByConfig `yaml:"assumedBy"`
	Policies        PoliciesConfig    `yaml:"policies,omitempty"`
	BoundaryPolicy  string            `yaml:"boundaryPolicy,omitempty"`
}

// Principal reference kinds accepted in assumedBy entries.
const (
	PrincipalTypeService  = "service"
	PrincipalTypeAccount  = "account"
	PrincipalTypeProvider = "provider"
)

// AssumedByConfig is one symbolic trust-principal reference.
type AssumedByConfig struct {
	Type      string `yaml:"type"`
	Principal string `yaml:"principal"`
}

// PoliciesConfig names managed policies to attach: AWS-managed by well-known
// name, customer-managed by registered policy name.
type PoliciesConfig struct {
	AwsManaged      []string `yaml:"awsManaged,omitempty"`
	CustomerManaged []string `yaml:"customerManaged,omitempty"`
}

// GroupSetConfig groups IAM groups deployed to a common scope.
type GroupSetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Groups            []GroupConfig     `yaml:"groups"`
}

// GroupConfig declares one IAM group.
type GroupConfig struct {
	Name     string         `yaml:"name"`
	Policies PoliciesConfig `yaml:"policies,omitempty"`
}

// UserSetConfig groups IAM users deployed to a common scope.
type UserSetConfig struct {
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
	Users             []UserConfig      `yaml:"users"`
}

// UserConfig declares one IAM user and its group membership.
type UserConfig struct {
	Username       string `yaml:"username"`
	Group          string `yaml:"group,omitempty"`
	BoundaryPolicy string `yaml:"boundaryPolicy,omitempty"`
}

// IdentityCenterConfig declares the organization-wide Identity Center:
// permission sets and their account assignments.
type IdentityCenterConfig struct {
	Name                  string                `yaml:"name"`
	DelegatedAdminAccount string                `yaml:"delegatedAdminAccount,omitempty"`
	PermissionSets        []PermissionSetConfig `yaml:"identityCenterPermissionSets,omitempty"`
	Assignments           []AssignmentConfig    `yaml:"identityCenterAssignments,omitempty"`
}

// PermissionSetConfig declares one permission set.
type PermissionSetConfig struct {
	Name string `yaml:"name"`
	// Session duration in minutes; zero means not configured.
	SessionDuration int                         `yaml:"sessionDuration,omitempty"`
	Policies        *PermissionSetPoliciesConfig `yaml:"policies,omitempty"`
}

// PermissionSetPoliciesConfig names the policies bundled into a permission
// set. AcceleratorManaged entries are customer-managed policies deployed by
// the policy sets in this same configuration; both lists collapse into plain
// customer-managed references.
type PermissionSetPoliciesConfig struct {
	AwsManaged          []string                         `yaml:"awsManaged,omitempty"`
	CustomerManaged     []CustomerManagedPolicyRefConfig `yaml:"customerManaged,omitempty"`
	AcceleratorManaged  []string                         `yaml:"acceleratorManaged,omitempty"`
	InlinePolicy        string                           `yaml:"inlinePolicy,omitempty"`
	PermissionsBoundary *PermissionsBoundaryConfig       `yaml:"permissionsBoundary,omitempty"`
}

// CustomerManagedPolicyRefConfig references a customer-managed policy by name
// and optional IAM path.
type CustomerManagedPolicyRefConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path,omitempty"`
}

// PermissionsBoundaryConfig caps a permission set's effective permissions.
// The two forms are mutually exclusive in the output; the customer-managed
// form wins when both are configured.
type PermissionsBoundaryConfig struct {
	CustomerManagedPolicy *CustomerManagedPolicyRefConfig `yaml:"customerManagedPolicy,omitempty"`
	AwsManagedPolicyName  string                          `yaml:"awsManagedPolicyName,omitempty"`
}

// Principal types accepted by Identity Center assignments.
const (
	PrincipalUser  = "USER"
	PrincipalGroup = "GROUP"
)

// AssignmentConfig binds a permission set to principals across a deployment
// target. The singular PrincipalId/PrincipalType pair is the legacy form; the
// Principals list is the expanded form. Both may be present on one entry.
type AssignmentConfig struct {
	Name              string            `yaml:"name"`
	PermissionSetName string            `yaml:"permissionSetName"`
	PrincipalID       string            `yaml:"principalId,omitempty"`
	PrincipalType     string            `yaml:"principalType,omitempty"`
	Principals        []PrincipalConfig `yaml:"principals,omitempty"`
	DeploymentTargets DeploymentTargets `yaml:"deploymentTargets"`
}

// PrincipalConfig names a user or group in the external identity store.
type PrincipalConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// DocumentPaths returns every document path the configuration references,
// in declaration order.
func (c *Config) DocumentPaths() []string {
	var out []string
	for _, p := range c.Providers {
		if p.MetadataDocument != "" {
			out = append(out, p.MetadataDocument)
		}
	}
	for _, ps := range c.PolicySets {
		for _, p := range ps.Policies {
			out = append(out, p.Document)
		}
	}
	if ic := c.IdentityCenter; ic != nil {
		for _, ps := range ic.PermissionSets {
			if ps.Policies != nil && ps.Policies.InlinePolicy != "" {
				out = append(out, ps.Policies.InlinePolicy)
			}
		}
	}
	return out
}

// ExternalPolicyRefs returns the customer-managed policy names referenced by
// roles, groups, or users but declared by no policy set. Such references
// resolve only against policies already present in the target account.
func (c *Config) ExternalPolicyRefs() []string {
	declared := map[string]bool{}
	for _, ps := range c.PolicySets {
		for _, p := range ps.Policies {
			declared[p.Name] = true
		}
	}
	seen := map[string]bool{}
	var out []string
	ref := func(name string) {
		if name != "" && !declared[name] && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, rs := range c.RoleSets {
		for _, r := range rs.Roles {
			for _, n := range r.Policies.CustomerManaged {
				ref(n)
			}
			ref(r.BoundaryPolicy)
		}
	}
	for _, gs := range c.GroupSets {
		for _, g := range gs.Groups {
			for _, n := range g.Policies.CustomerManaged {
				ref(n)
			}
		}
	}
	for _, us := range c.UserSets {
		for _, u := range us.Users {
			ref(u.BoundaryPolicy)
		}
	}
	return out
}

// Validate checks structural rules that do not require external lookups.
func (c *Config) Validate() error {
	for _, rs := range c.RoleSets {
		for _, r := range rs.Roles {
			if r.Name == "" {
				return fmt.Errorf("roleSets: role with empty name")
			}
			if len(r.AssumedBy) == 0 {
				return fmt.Errorf("role %q: assumedBy must name at least one principal", r.Name)
			}
			for _, ab := range r.AssumedBy {
				switch ab.Type {
				case PrincipalTypeService, PrincipalTypeAccount, PrincipalTypeProvider:
				default:
					return fmt.Errorf("role %q: unknown assumedBy type %q", r.Name, ab.Type)
				}
				if ab.Principal == "" {
					return fmt.Errorf("role %q: assumedBy entry with empty principal", r.Name)
				}
			}
		}
	}
	for _, ps := range c.PolicySets {
		for _, p := range ps.Policies {
			if p.Name == "" || p.Document == "" {
				return fmt.Errorf("policySets: policy entries require both name and policy document")
			}
		}
	}
	if ic := c.IdentityCenter; ic != nil {
		seen := map[string]bool{}
		for _, ps := range ic.PermissionSets {
			if ps.Name == "" {
				return fmt.Errorf("identityCenter: permission set with empty name")
			}
			if seen[ps.Name] {
				return fmt.Errorf("identityCenter: duplicate permission set %q", ps.Name)
			}
			seen[ps.Name] = true
			if ps.SessionDuration < 0 {
				return fmt.Errorf("permission set %q: sessionDuration must not be negative", ps.Name)
			}
		}
		for _, a := range ic.Assignments {
			if a.Name == "" || a.PermissionSetName == "" {
				return fmt.Errorf("identityCenter: assignments require both name and permissionSetName")
			}
			if a.PrincipalID == "" && a.PrincipalType == "" && len(a.Principals) == 0 {
				return fmt.Errorf("assignment %q: no principal configured", a.Name)
			}
			if (a.PrincipalID == "") != (a.PrincipalType == "") {
				return fmt.Errorf("assignment %q: principalId and principalType must be set together", a.Name)
			}
			for _, p := range a.Principals {
				if p.Type != PrincipalUser && p.Type != PrincipalGroup {
					return fmt.Errorf("assignment %q: principal type must be USER or GROUP, got %q", a.Name, p.Type)
				}
				if p.Name == "" {
					return fmt.Errorf("assignment %q: principal with empty name", a.Name)
				}
			}
		}
	}
	return nil
}
