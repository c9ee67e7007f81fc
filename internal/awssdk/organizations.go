package awssdk

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	organizationstypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"

	sdkerrors "github.com/stackaccel/identity-compiler/internal/awssdk/errors"
	"github.com/stackaccel/identity-compiler/internal/config"
)

// ListAccountsAPI is the subset of the Organizations API used to enumerate
// member accounts.
type ListAccountsAPI interface {
	ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error)
}

// ListAccountsForParentAPI is the subset of the Organizations API used to
// enumerate accounts under one organizational unit.
type ListAccountsForParentAPI interface {
	ListAccountsForParent(ctx context.Context, params *organizations.ListAccountsForParentInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsForParentOutput, error)
}

// ListOrganizationalUnitsForParentAPI walks the OU tree.
type ListOrganizationalUnitsForParentAPI interface {
	ListOrganizationalUnitsForParent(ctx context.Context, params *organizations.ListOrganizationalUnitsForParentInput, optFns ...func(*organizations.Options)) (*organizations.ListOrganizationalUnitsForParentOutput, error)
}

// ListRootsAPI returns the organization roots.
type ListRootsAPI interface {
	ListRoots(ctx context.Context, params *organizations.ListRootsInput, optFns ...func(*organizations.Options)) (*organizations.ListRootsOutput, error)
}

var (
	_ ListAccountsAPI                     = (*organizations.Client)(nil)
	_ ListAccountsForParentAPI            = (*organizations.Client)(nil)
	_ ListOrganizationalUnitsForParentAPI = (*organizations.Client)(nil)
	_ ListRootsAPI                        = (*organizations.Client)(nil)
)

// organizationsAPI is the combined surface the expander needs.
type organizationsAPI interface {
	ListAccountsAPI
	ListAccountsForParentAPI
	ListOrganizationalUnitsForParentAPI
	ListRootsAPI
}

// OrganizationsExpander expands deployment targets against the live
// organization. Account and OU membership is snapshotted once at
// construction; expansion itself is in-memory, so repeated compilation runs
// see identical membership.
type OrganizationsExpander struct {
	// accountsByName maps account name to id.
	accountsByName map[string]string
	// accountsByOU maps an OU path ("Workloads", "Workloads/Sandbox",
	// "Root" for the organization root) to the member account ids beneath
	// it, nested OUs included.
	accountsByOU map[string][]string
	// ouPathsByName maps a bare OU name to every path carrying it, so
	// unambiguous names still resolve without a full path.
	ouPathsByName map[string][]string
	all           []string
}

// NewOrganizationsExpander snapshots organization membership.
func NewOrganizationsExpander(ctx context.Context, client organizationsAPI) (*OrganizationsExpander, error) {
	e := &OrganizationsExpander{
		accountsByName: map[string]string{},
		accountsByOU:   map[string][]string{},
		ouPathsByName:  map[string][]string{},
	}

	var next *string
	for {
		out, err := client.ListAccounts(ctx, &organizations.ListAccountsInput{NextToken: next})
		if err != nil {
			return nil, fmt.Errorf("failed to list organization accounts: %w", sdkerrors.Classify(err))
		}
		for _, a := range out.Accounts {
			if a.Status != organizationstypes.AccountStatusActive {
				continue
			}
			e.accountsByName[stringValue(a.Name)] = stringValue(a.Id)
			e.all = append(e.all, stringValue(a.Id))
		}
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}
	sort.Strings(e.all)

	next = nil
	for {
		roots, err := client.ListRoots(ctx, &organizations.ListRootsInput{NextToken: next})
		if err != nil {
			return nil, fmt.Errorf("failed to list organization roots: %w", sdkerrors.Classify(err))
		}
		for _, root := range roots.Roots {
			if err := e.walkOU(ctx, client, stringValue(root.Id), "Root"); err != nil {
				return nil, err
			}
		}
		if roots.NextToken == nil {
			break
		}
		next = roots.NextToken
	}
	return e, nil
}

func (e *OrganizationsExpander) walkOU(ctx context.Context, client organizationsAPI, parentID, path string) error {
	ids, err := accountsUnder(ctx, client, parentID)
	if err != nil {
		return err
	}
	e.accountsByOU[path] = ids

	var next *string
	for {
		out, err := client.ListOrganizationalUnitsForParent(ctx, &organizations.ListOrganizationalUnitsForParentInput{ParentId: &parentID, NextToken: next})
		if err != nil {
			return fmt.Errorf("failed to list organizational units under %s: %w", parentID, sdkerrors.Classify(err))
		}
		for _, ou := range out.OrganizationalUnits {
			name := stringValue(ou.Name)
			childPath := name
			if path != "Root" {
				childPath = path + "/" + name
			}
			e.ouPathsByName[name] = append(e.ouPathsByName[name], childPath)
			if err := e.walkOU(ctx, client, stringValue(ou.Id), childPath); err != nil {
				return err
			}
			// An OU's membership includes accounts in its child OUs.
			e.accountsByOU[path] = append(e.accountsByOU[path], e.accountsByOU[childPath]...)
		}
		if out.NextToken == nil {
			return nil
		}
		next = out.NextToken
	}
}

func accountsUnder(ctx context.Context, client ListAccountsForParentAPI, parentID string) ([]string, error) {
	var ids []string
	var next *string
	for {
		out, err := client.ListAccountsForParent(ctx, &organizations.ListAccountsForParentInput{ParentId: &parentID, NextToken: next})
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts under %s: %w", parentID, sdkerrors.Classify(err))
		}
		for _, a := range out.Accounts {
			ids = append(ids, stringValue(a.Id))
		}
		if out.NextToken == nil {
			return ids, nil
		}
		next = out.NextToken
	}
}

// AccountID implements compile.AccountResolver against the snapshot.
func (e *OrganizationsExpander) AccountID(name string) (string, bool) {
	id, ok := e.accountsByName[name]
	return id, ok
}

// ouPath resolves an OU reference, which may be a full path or a bare name.
// A bare name shared by OUs under different parents must be written as a
// path to disambiguate.
func (e *OrganizationsExpander) ouPath(ref string) (string, error) {
	if _, ok := e.accountsByOU[ref]; ok {
		return ref, nil
	}
	paths := e.ouPathsByName[ref]
	switch len(paths) {
	case 0:
		return "", fmt.Errorf("organizational unit %q not found in organization", ref)
	case 1:
		return paths[0], nil
	}
	sorted := append([]string{}, paths...)
	sort.Strings(sorted)
	return "", fmt.Errorf("organizational unit name %q is ambiguous, use one of the paths %v", ref, sorted)
}

// AccountIDs implements compile.TargetExpander.
func (e *OrganizationsExpander) AccountIDs(t config.DeploymentTargets) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, a := range t.Accounts {
		// Accounts may be listed by name or by id.
		if id, ok := e.accountsByName[a]; ok {
			add(id)
			continue
		}
		add(a)
	}
	for _, ou := range t.OrganizationalUnits {
		path, err := e.ouPath(ou)
		if err != nil {
			return nil, err
		}
		for _, id := range e.accountsByOU[path] {
			add(id)
		}
	}
	if len(t.Accounts) == 0 && len(t.OrganizationalUnits) == 0 {
		for _, id := range e.all {
			add(id)
		}
	}
	return excludeAccounts(out, t.ExcludedAccounts, e.accountsByName), nil
}

// Included implements compile.TargetExpander.
func (e *OrganizationsExpander) Included(t config.DeploymentTargets, accountID string) (bool, error) {
	ids, err := e.AccountIDs(t)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == accountID {
			return true, nil
		}
	}
	return false, nil
}

func excludeAccounts(ids, excluded []string, byName map[string]string) []string {
	if len(excluded) == 0 {
		return ids
	}
	drop := map[string]bool{}
	for _, ex := range excluded {
		if id, ok := byName[ex]; ok {
			drop[id] = true
		}
		drop[ex] = true
	}
	var out []string
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
