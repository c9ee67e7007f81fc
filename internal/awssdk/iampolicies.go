package awssdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	sdkerrors "github.com/stackaccel/identity-compiler/internal/awssdk/errors"
	"github.com/stackaccel/identity-compiler/internal/compile"
)

// ListPoliciesAPI is the subset of the IAM API used to enumerate
// customer-managed policies already present in the target account.
type ListPoliciesAPI interface {
	ListPolicies(ctx context.Context, params *iam.ListPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListPoliciesOutput, error)
}

var _ ListPoliciesAPI = (*iam.Client)(nil)

// WarmPolicyRegistry pre-registers the account's existing customer-managed
// policies so roles may reference policies provisioned outside this
// configuration.
func WarmPolicyRegistry(ctx context.Context, client ListPoliciesAPI, reg *compile.PolicyRegistry) error {
	var marker *string
	for {
		out, err := client.ListPolicies(ctx, &iam.ListPoliciesInput{
			Scope:  iamtypes.PolicyScopeTypeLocal,
			Marker: marker,
		})
		if err != nil {
			return fmt.Errorf("failed to list customer-managed policies: %w", sdkerrors.Classify(err))
		}
		for _, p := range out.Policies {
			reg.Register(compile.ResolvedPolicy{
				Name:   stringValue(p.PolicyName),
				Source: compile.PolicyCustomerManaged,
				Arn:    stringValue(p.Arn),
			})
		}
		if !out.IsTruncated {
			return nil
		}
		marker = out.Marker
	}
}
