package compile_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stackaccel/identity-compiler/internal/compile"
)

func TestAwsManagedPolicyArn(t *testing.T) {
	cases := []struct {
		partition, name, want string
	}{
		{"aws", "ReadOnlyAccess", "arn:aws:iam::aws:policy/ReadOnlyAccess"},
		{"aws-cn", "ReadOnlyAccess", "arn:aws-cn:iam::aws:policy/ReadOnlyAccess"},
		{"aws", "service-role/AWSLambdaBasicExecutionRole", "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"},
		// Full ARNs pass through untouched.
		{"aws", "arn:aws:iam::aws:policy/AdministratorAccess", "arn:aws:iam::aws:policy/AdministratorAccess"},
	}
	for _, c := range cases {
		if got := compile.AwsManagedPolicyArn(c.partition, c.name); got != c.want {
			t.Fatalf("AwsManagedPolicyArn(%q, %q) = %q, want %q", c.partition, c.name, got, c.want)
		}
	}
}

func TestResolveManagedPolicies(t *testing.T) {
	reg := compile.NewPolicyRegistry()
	reg.Register(compile.ResolvedPolicy{Name: "baseline", Source: compile.PolicyCustomerManaged, Arn: "arn:aws:iam::111122223333:policy/baseline"})

	got, err := compile.ResolveManagedPolicies("role", []string{"ReadOnlyAccess"}, []string{"baseline"}, reg, "aws")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []compile.ResolvedPolicy{
		{Name: "ReadOnlyAccess", Source: compile.PolicyAWSManaged, Arn: "arn:aws:iam::aws:policy/ReadOnlyAccess"},
		{Name: "baseline", Source: compile.PolicyCustomerManaged, Arn: "arn:aws:iam::111122223333:policy/baseline"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestResolveManagedPoliciesUnregistered(t *testing.T) {
	_, err := compile.ResolveManagedPolicies("my-role", nil, []string{"missing"}, compile.NewPolicyRegistry(), "aws")
	var want *compile.UnregisteredPolicyError
	if !errors.As(err, &want) {
		t.Fatalf("expected UnregisteredPolicyError, got %v", err)
	}
	if want.Entry != "my-role" || want.Policy != "missing" {
		t.Fatalf("error should name the entry and policy, got %+v", want)
	}
}

func TestResolveBoundary(t *testing.T) {
	reg := compile.NewPolicyRegistry()
	reg.Register(compile.ResolvedPolicy{Name: "boundary", Source: compile.PolicyCustomerManaged, Arn: "arn:aws:iam::111122223333:policy/boundary"})

	b, err := compile.ResolveBoundary("role", "boundary", reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b == nil || b.Arn != "arn:aws:iam::111122223333:policy/boundary" {
		t.Fatalf("got %+v", b)
	}

	none, err := compile.ResolveBoundary("role", "", reg)
	if err != nil || none != nil {
		t.Fatalf("empty boundary name must resolve to nil, got %+v, %v", none, err)
	}

	_, err = compile.ResolveBoundary("role", "missing", reg)
	var wantErr *compile.UnregisteredPolicyError
	if !errors.As(err, &wantErr) {
		t.Fatalf("expected UnregisteredPolicyError, got %v", err)
	}
}

func TestPolicyRegistryNamesSorted(t *testing.T) {
	reg := compile.NewPolicyRegistry()
	reg.Register(compile.ResolvedPolicy{Name: "zulu"})
	reg.Register(compile.ResolvedPolicy{Name: "alpha"})
	reg.Register(compile.ResolvedPolicy{Name: "mike"})

	want := []string{"alpha", "mike", "zulu"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPolicyRegistryAll(t *testing.T) {
	reg := compile.NewPolicyRegistry()
	reg.Register(compile.ResolvedPolicy{Name: "zulu", Source: compile.PolicyCustomerManaged, Arn: "arn:aws:iam::111122223333:policy/zulu"})
	reg.Register(compile.ResolvedPolicy{Name: "alpha", Source: compile.PolicyCustomerManaged, Arn: "arn:aws:iam::111122223333:policy/alpha"})

	got := reg.All()
	if len(got) != 2 || got[0].Name != "alpha" || got[1].Name != "zulu" {
		t.Fatalf("got %+v", got)
	}
}
