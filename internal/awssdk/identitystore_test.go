package awssdk

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/identitystore"

	"github.com/stackaccel/identity-compiler/internal/config"
)

type fakeUsers struct {
	id string
}

func (f *fakeUsers) GetUserId(_ context.Context, params *identitystore.GetUserIdInput, _ ...func(*identitystore.Options)) (*identitystore.GetUserIdOutput, error) {
	return &identitystore.GetUserIdOutput{UserId: &f.id, IdentityStoreId: params.IdentityStoreId}, nil
}

type fakeGroups struct {
	id string
}

func (f *fakeGroups) GetGroupId(_ context.Context, params *identitystore.GetGroupIdInput, _ ...func(*identitystore.Options)) (*identitystore.GetGroupIdOutput, error) {
	return &identitystore.GetGroupIdOutput{GroupId: &f.id, IdentityStoreId: params.IdentityStoreId}, nil
}

func TestResolvePrincipals(t *testing.T) {
	r := &IdentityStoreResolver{Users: &fakeUsers{id: "u-1"}, Groups: &fakeGroups{id: "g-1"}}

	got, err := r.ResolvePrincipals(context.Background(), []config.PrincipalConfig{
		{Type: config.PrincipalGroup, Name: "platform-admins"},
		{Type: config.PrincipalUser, Name: "alice"},
	}, "d-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d principals", len(got))
	}
	if got[0].ID != "g-1" || got[0].Type != config.PrincipalGroup || got[0].Name != "platform-admins" {
		t.Fatalf("got %+v", got[0])
	}
	if got[1].ID != "u-1" || got[1].Type != config.PrincipalUser {
		t.Fatalf("got %+v", got[1])
	}
}

func TestResolvePrincipalsRejectsUnknownType(t *testing.T) {
	r := &IdentityStoreResolver{Users: &fakeUsers{}, Groups: &fakeGroups{}}
	_, err := r.ResolvePrincipals(context.Background(), []config.PrincipalConfig{{Type: "ROBOT", Name: "hal"}}, "d-123")
	if err == nil {
		t.Fatal("expected error for unsupported principal type")
	}
}
