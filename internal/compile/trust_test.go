package compile_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stackaccel/identity-compiler/internal/compile"
)

func TestTrustPolicyComposite(t *testing.T) {
	doc, err := compile.TrustPolicyJSON("aws", []compile.ResolvedPrincipal{
		{Kind: compile.ResolvedService, Identifier: "ec2.amazonaws.com"},
		{Kind: compile.ResolvedAccount, Identifier: "111122223333"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed struct {
		Statement []struct {
			Effect    string
			Action    string
			Principal map[string]any
		}
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	st := parsed.Statement[0]
	if st.Action != "sts:AssumeRole" || st.Effect != "Allow" {
		t.Fatalf("got %+v", st)
	}
	if st.Principal["Service"] != "ec2.amazonaws.com" {
		t.Fatalf("got service principal %v", st.Principal["Service"])
	}
	if st.Principal["AWS"] != "arn:aws:iam::111122223333:root" {
		t.Fatalf("got account principal %v", st.Principal["AWS"])
	}
}

func TestTrustPolicyFederated(t *testing.T) {
	doc, err := compile.TrustPolicyJSON("aws", []compile.ResolvedPrincipal{
		{Kind: compile.ResolvedFederated, Identifier: "arn:aws:iam::111122223333:saml-provider/okta"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc, "sts:AssumeRoleWithSAML") {
		t.Fatalf("federated trust must use AssumeRoleWithSAML: %s", doc)
	}
	if !strings.Contains(doc, "https://signin.aws.amazon.com/saml") {
		t.Fatalf("missing default audience: %s", doc)
	}
}

func TestTrustPolicyFederatedPartitionAudience(t *testing.T) {
	doc, err := compile.TrustPolicyJSON("aws-cn", []compile.ResolvedPrincipal{
		{
			Kind:       compile.ResolvedFederated,
			Identifier: "arn:aws-cn:iam::111122223333:saml-provider/okta",
			Conditions: map[string][]string{"SAML:aud": {"https://signin.amazonaws.cn/saml"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc, "https://signin.amazonaws.cn/saml") {
		t.Fatalf("missing partition audience: %s", doc)
	}
}

func TestTrustPolicyRejectsMixedFederated(t *testing.T) {
	_, err := compile.TrustPolicyJSON("aws", []compile.ResolvedPrincipal{
		{Kind: compile.ResolvedFederated, Identifier: "arn:aws:iam::111122223333:saml-provider/okta"},
		{Kind: compile.ResolvedService, Identifier: "ec2.amazonaws.com"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestTrustPolicyRequiresPrincipals(t *testing.T) {
	if _, err := compile.TrustPolicyJSON("aws", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestTrustPolicyMultipleAccountsAsList(t *testing.T) {
	doc, err := compile.TrustPolicyJSON("aws", []compile.ResolvedPrincipal{
		{Kind: compile.ResolvedAccount, Identifier: "111122223333"},
		{Kind: compile.ResolvedAccount, Identifier: "444455556666"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed struct {
		Statement []struct {
			Principal map[string]any
		}
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	arns, ok := parsed.Statement[0].Principal["AWS"].([]any)
	if !ok || len(arns) != 2 {
		t.Fatalf("expected two account root ARNs, got %v", parsed.Statement[0].Principal["AWS"])
	}
}
