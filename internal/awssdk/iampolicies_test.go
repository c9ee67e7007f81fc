package awssdk

import (
	"context"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/stackaccel/identity-compiler/internal/compile"
)

type fakeListPolicies struct {
	pages [][]iamtypes.Policy
	calls int
}

func (f *fakeListPolicies) ListPolicies(_ context.Context, params *iam.ListPoliciesInput, _ ...func(*iam.Options)) (*iam.ListPoliciesOutput, error) {
	page := f.pages[f.calls]
	f.calls++
	out := &iam.ListPoliciesOutput{Policies: page}
	if f.calls < len(f.pages) {
		out.IsTruncated = true
		marker := "next"
		out.Marker = &marker
	}
	return out, nil
}

func TestWarmPolicyRegistryPaginates(t *testing.T) {
	client := &fakeListPolicies{pages: [][]iamtypes.Policy{
		{{PolicyName: str("alpha"), Arn: str("arn:aws:iam::111122223333:policy/alpha")}},
		{{PolicyName: str("beta"), Arn: str("arn:aws:iam::111122223333:policy/beta")}},
	}}

	reg := compile.NewPolicyRegistry()
	if err := WarmPolicyRegistry(context.Background(), client, reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 pages, got %d calls", client.calls)
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Fatalf("got %v", got)
	}
	p, ok := reg.Lookup("beta")
	if !ok || p.Source != compile.PolicyCustomerManaged {
		t.Fatalf("got %+v, %v", p, ok)
	}
}
