package awssdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"

	sdkerrors "github.com/stackaccel/identity-compiler/internal/awssdk/errors"
)

// Narrow single-method interfaces over the SSO Admin API so tests can inject
// fakes without a full client.

// ListInstancesAPI is the subset of the SSO Admin API used to discover the
// Identity Center instance ARN and identity store id.
type ListInstancesAPI interface {
	ListInstances(ctx context.Context, params *ssoadmin.ListInstancesInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListInstancesOutput, error)
}

var _ ListInstancesAPI = (*ssoadmin.Client)(nil)

// Instance identifies one Identity Center instance.
type Instance struct {
	InstanceArn     string
	IdentityStoreID string
}

// DiscoverInstance returns the account's Identity Center instance. Accounts
// carry at most one instance; zero instances is a configuration error.
func DiscoverInstance(ctx context.Context, client ListInstancesAPI) (Instance, error) {
	out, err := client.ListInstances(ctx, &ssoadmin.ListInstancesInput{})
	if err != nil {
		return Instance{}, sdkerrors.Classify(err)
	}
	if len(out.Instances) == 0 {
		return Instance{}, fmt.Errorf("no Identity Center instance found in this account")
	}
	inst := out.Instances[0]
	return Instance{
		InstanceArn:     stringValue(inst.InstanceArn),
		IdentityStoreID: stringValue(inst.IdentityStoreId),
	}, nil
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
