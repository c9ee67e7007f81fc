package compile_test

import (
	"errors"
	"testing"

	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/config"
	"github.com/stackaccel/identity-compiler/internal/testutil"
)

func TestCompileRoleComposite(t *testing.T) {
	env, accounts, _, _, _ := testutil.Env("aws")
	accounts.IDs["Security"] = "444455556666"

	role, err := compile.CompileRole(config.RoleConfig{
		Name: "ops",
		AssumedBy: []config.AssumedByConfig{
			{Type: config.PrincipalTypeService, Principal: "ec2.amazonaws.com"},
			{Type: config.PrincipalTypeAccount, Principal: "Security"},
		},
		InstanceProfile: true,
	}, "/managed/", compile.NewPolicyRegistry(), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(role.Principals) != 2 {
		t.Fatalf("got %d principals", len(role.Principals))
	}
	if role.Path != "/managed/" || !role.InstanceProfile {
		t.Fatalf("got %+v", role)
	}
	if role.Federated() {
		t.Fatal("composite trust must not report federated")
	}
}

func TestCompileRoleAmbiguousProvider(t *testing.T) {
	env, _, providers, _, _ := testutil.Env("aws")
	providers.Arns["okta"] = "arn:aws:iam::111122223333:saml-provider/okta"

	_, err := compile.CompileRole(config.RoleConfig{
		Name: "federated-ops",
		AssumedBy: []config.AssumedByConfig{
			{Type: config.PrincipalTypeProvider, Principal: "okta"},
			{Type: config.PrincipalTypeService, Principal: "ec2.amazonaws.com"},
		},
	}, "", compile.NewPolicyRegistry(), env)
	var want *compile.AmbiguousProviderPrincipalError
	if !errors.As(err, &want) {
		t.Fatalf("expected AmbiguousProviderPrincipalError, got %v", err)
	}
	if want.Role != "federated-ops" {
		t.Fatalf("error should name the role, got %+v", want)
	}
}

func TestCompileRoleFederatedAlone(t *testing.T) {
	env, _, providers, _, _ := testutil.Env("aws")
	providers.Arns["okta"] = "arn:aws:iam::111122223333:saml-provider/okta"

	role, err := compile.CompileRole(config.RoleConfig{
		Name:      "federated-ops",
		AssumedBy: []config.AssumedByConfig{{Type: config.PrincipalTypeProvider, Principal: "okta"}},
	}, "", compile.NewPolicyRegistry(), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !role.Federated() {
		t.Fatal("single provider principal must report federated")
	}
}

func TestCompileRoleUnregisteredPolicy(t *testing.T) {
	env, _, _, _, _ := testutil.Env("aws")
	role, err := compile.CompileRole(config.RoleConfig{
		Name:      "ops",
		AssumedBy: []config.AssumedByConfig{{Type: config.PrincipalTypeService, Principal: "ec2.amazonaws.com"}},
		Policies:  config.PoliciesConfig{CustomerManaged: []string{"never-registered"}},
	}, "", compile.NewPolicyRegistry(), env)
	var want *compile.UnregisteredPolicyError
	if !errors.As(err, &want) {
		t.Fatalf("expected UnregisteredPolicyError, got %v", err)
	}
	if role != nil {
		t.Fatal("no role definition may be produced on failure")
	}
}

func TestCompileRoleSuppressesManagedPolicyAudit(t *testing.T) {
	env, _, _, _, _ := testutil.Env("aws")
	audit := &testutil.RecordingAudit{}
	env.Audit = audit

	_, err := compile.CompileRole(config.RoleConfig{
		Name:      "ops",
		AssumedBy: []config.AssumedByConfig{{Type: config.PrincipalTypeService, Principal: "ec2.amazonaws.com"}},
		Policies:  config.PoliciesConfig{AwsManaged: []string{"ReadOnlyAccess"}},
	}, "", compile.NewPolicyRegistry(), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audit.Notes) != 1 || audit.Notes[0] != "iam/role/ops:AwsSolutions-IAM4" {
		t.Fatalf("got audit notes %v", audit.Notes)
	}
}
