package awssdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	identitystoredocument "github.com/aws/aws-sdk-go-v2/service/identitystore/document"
	identitystoretypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"

	sdkerrors "github.com/stackaccel/identity-compiler/internal/awssdk/errors"
	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/config"
)

// GetUserIdAPI is the subset of the Identity Store API used to resolve a
// user name to its id.
type GetUserIdAPI interface {
	GetUserId(ctx context.Context, params *identitystore.GetUserIdInput, optFns ...func(*identitystore.Options)) (*identitystore.GetUserIdOutput, error)
}

// GetGroupIdAPI is the subset of the Identity Store API used to resolve a
// group name to its id.
type GetGroupIdAPI interface {
	GetGroupId(ctx context.Context, params *identitystore.GetGroupIdInput, optFns ...func(*identitystore.Options)) (*identitystore.GetGroupIdOutput, error)
}

var (
	_ GetUserIdAPI  = (*identitystore.Client)(nil)
	_ GetGroupIdAPI = (*identitystore.Client)(nil)
)

// IdentityStoreResolver resolves symbolic user/group references against the
// AWS Identity Store.
type IdentityStoreResolver struct {
	Users  GetUserIdAPI
	Groups GetGroupIdAPI
}

// NewIdentityStoreResolver wraps a full Identity Store client.
func NewIdentityStoreResolver(client *identitystore.Client) *IdentityStoreResolver {
	return &IdentityStoreResolver{Users: client, Groups: client}
}

// ResolvePrincipals implements compile.MetadataResolver.
func (r *IdentityStoreResolver) ResolvePrincipals(ctx context.Context, refs []config.PrincipalConfig, identityStoreID string) ([]compile.PrincipalMetadata, error) {
	out := make([]compile.PrincipalMetadata, 0, len(refs))
	for _, ref := range refs {
		var id string
		var err error
		switch ref.Type {
		case config.PrincipalUser:
			id, err = r.userID(ctx, identityStoreID, ref.Name)
		case config.PrincipalGroup:
			id, err = r.groupID(ctx, identityStoreID, ref.Name)
		default:
			return nil, fmt.Errorf("unsupported principal type %q for %q", ref.Type, ref.Name)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, compile.PrincipalMetadata{Type: ref.Type, Name: ref.Name, ID: id})
	}
	return out, nil
}

func (r *IdentityStoreResolver) userID(ctx context.Context, storeID, name string) (string, error) {
	out, err := r.Users.GetUserId(ctx, &identitystore.GetUserIdInput{
		IdentityStoreId: &storeID,
		AlternateIdentifier: &identitystoretypes.AlternateIdentifierMemberUniqueAttribute{
			Value: identitystoretypes.UniqueAttribute{
				AttributePath:  strPtr("userName"),
				AttributeValue: identitystoredocument.NewLazyDocument(name),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve user %q: %w", name, sdkerrors.Classify(err))
	}
	return stringValue(out.UserId), nil
}

func (r *IdentityStoreResolver) groupID(ctx context.Context, storeID, name string) (string, error) {
	out, err := r.Groups.GetGroupId(ctx, &identitystore.GetGroupIdInput{
		IdentityStoreId: &storeID,
		AlternateIdentifier: &identitystoretypes.AlternateIdentifierMemberUniqueAttribute{
			Value: identitystoretypes.UniqueAttribute{
				AttributePath:  strPtr("displayName"),
				AttributeValue: identitystoredocument.NewLazyDocument(name),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve group %q: %w", name, sdkerrors.Classify(err))
	}
	return stringValue(out.GroupId), nil
}

func strPtr(s string) *string { return &s }
