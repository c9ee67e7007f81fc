package compile_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/config"
	"github.com/stackaccel/identity-compiler/internal/testutil"
)

func TestCompileAssignmentsExpansion(t *testing.T) {
	env, _, _, metadata, _ := testutil.Env("aws")
	metadata.IDs["GROUP/platform-admins"] = "g-1111"
	metadata.IDs["USER/alice"] = "u-2222"

	ic := &config.IdentityCenterConfig{
		Name:           "org-sso",
		PermissionSets: []config.PermissionSetConfig{{Name: "Admin"}},
		Assignments: []config.AssignmentConfig{{
			Name:              "admins",
			PermissionSetName: "Admin",
			PrincipalID:       "g-0000",
			PrincipalType:     config.PrincipalGroup,
			Principals: []config.PrincipalConfig{
				{Type: config.PrincipalGroup, Name: "platform-admins"},
				{Type: config.PrincipalUser, Name: "alice"},
			},
			DeploymentTargets: config.DeploymentTargets{Accounts: []string{"111122223333", "444455556666"}},
		}},
	}

	_, psReg, err := compile.CompilePermissionSets(ic, "arn:aws:sso:::instance/ssoins-1", nil, compile.NewPolicyRegistry(), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := compile.CompileAssignments(context.Background(), ic, psReg, "arn:aws:sso:::instance/ssoins-1", "d-123", env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Legacy singular principal plus two expanded principals, per account.
	if len(got) != 6 {
		t.Fatalf("got %d assignments, want 6", len(got))
	}

	byAccount := map[string][]compile.AssignmentDefinition{}
	for _, a := range got {
		byAccount[a.TargetAccountID] = append(byAccount[a.TargetAccountID], a)
	}
	for account, defs := range byAccount {
		if len(defs) != 3 {
			t.Fatalf("account %s: got %d assignments", account, len(defs))
		}
		// First in the chain is the legacy pair; the rest follow in config
		// order, each depending on its predecessor.
		if defs[0].PrincipalID != "g-0000" || len(defs[0].DependsOn) != 0 {
			t.Fatalf("account %s: unexpected chain head %+v", account, defs[0])
		}
		for i := 1; i < len(defs); i++ {
			if len(defs[i].DependsOn) != 1 || defs[i].DependsOn[0] != defs[i-1].LogicalID {
				t.Fatalf("account %s: assignment %d must depend on its predecessor, got %v", account, i, defs[i].DependsOn)
			}
		}
		// Chains never cross accounts.
		for _, d := range defs {
			for _, dep := range d.DependsOn {
				if !strings.Contains(dep, "/"+account+"/") {
					t.Fatalf("dependency %q crosses accounts", dep)
				}
			}
		}
	}

	for _, a := range got {
		if a.PermissionSetArnRef != "permission-set/Admin" {
			t.Fatalf("got arn ref %q", a.PermissionSetArnRef)
		}
	}
}

func TestCompileAssignmentsUnregisteredPermissionSet(t *testing.T) {
	env, _, _, _, _ := testutil.Env("aws")
	log := &testutil.BufferLogger{}
	env.Log = log

	ic := &config.IdentityCenterConfig{
		Name: "org-sso",
		Assignments: []config.AssignmentConfig{{
			Name:              "dangling",
			PermissionSetName: "NotCompiled",
			PrincipalID:       "g-0000",
			PrincipalType:     config.PrincipalGroup,
			DeploymentTargets: config.DeploymentTargets{Accounts: []string{"111122223333"}},
		}},
	}
	got, err := compile.CompileAssignments(context.Background(), ic, compile.NewPermissionSetRegistry(), "arn:aws:sso:::instance/ssoins-1", "d-123", env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].PermissionSetArnRef != "" {
		t.Fatalf("expected one assignment with an empty ARN reference, got %+v", got)
	}
	warned := false
	for _, c := range log.Calls {
		if strings.HasPrefix(c, "warn:") && strings.Contains(c, "NotCompiled") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a warning naming the permission set, got %v", log.Calls)
	}
}

func TestCompileAssignmentsMetadataSkippedWithoutPrincipals(t *testing.T) {
	env, _, _, metadata, _ := testutil.Env("aws")
	ic := &config.IdentityCenterConfig{
		Name: "org-sso",
		Assignments: []config.AssignmentConfig{{
			Name:              "legacy-only",
			PermissionSetName: "Admin",
			PrincipalID:       "u-1",
			PrincipalType:     config.PrincipalUser,
			DeploymentTargets: config.DeploymentTargets{Accounts: []string{"111122223333"}},
		}},
	}
	_, err := compile.CompileAssignments(context.Background(), ic, compile.NewPermissionSetRegistry(), "", "", env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metadata.Calls != 0 {
		t.Fatalf("identity store must not be consulted without symbolic principals, saw %d calls", metadata.Calls)
	}
}

func TestCompileAssignmentsExcludedAccount(t *testing.T) {
	env, _, _, _, _ := testutil.Env("aws")
	ic := &config.IdentityCenterConfig{
		Name: "org-sso",
		Assignments: []config.AssignmentConfig{{
			Name:              "scoped",
			PermissionSetName: "Admin",
			PrincipalID:       "g-1",
			PrincipalType:     config.PrincipalGroup,
			DeploymentTargets: config.DeploymentTargets{
				Accounts:         []string{"111122223333", "444455556666"},
				ExcludedAccounts: []string{"444455556666"},
			},
		}},
	}
	got, err := compile.CompileAssignments(context.Background(), ic, compile.NewPermissionSetRegistry(), "", "", env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].TargetAccountID != "111122223333" {
		t.Fatalf("excluded account must be skipped, got %+v", got)
	}
}
