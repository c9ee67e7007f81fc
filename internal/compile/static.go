package compile

import (
	"context"
	"fmt"

	"github.com/stackaccel/identity-compiler/internal/config"
)

// Static collaborator implementations for callers that supply lookup tables
// directly instead of querying the organization.

// MapAccounts resolves account names from a fixed table.
type MapAccounts map[string]string

func (m MapAccounts) AccountID(name string) (string, bool) {
	id, ok := m[name]
	return id, ok
}

// MapProviders resolves identity provider ARNs from a fixed table.
type MapProviders map[string]string

func (m MapProviders) ProviderArn(name string) (string, bool) {
	arn, ok := m[name]
	return arn, ok
}

// LiteralTargets expands deployment targets from their literal account list.
// Organizational units require organization access and are rejected.
type LiteralTargets struct{}

func (LiteralTargets) Included(t config.DeploymentTargets, accountID string) (bool, error) {
	for _, ex := range t.ExcludedAccounts {
		if ex == accountID {
			return false, nil
		}
	}
	if len(t.OrganizationalUnits) > 0 {
		return false, fmt.Errorf("deployment target uses organizational units; organization access is required to expand them")
	}
	// An empty scope means every target.
	if len(t.Accounts) == 0 {
		return true, nil
	}
	for _, a := range t.Accounts {
		if a == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (LiteralTargets) AccountIDs(t config.DeploymentTargets) ([]string, error) {
	if len(t.OrganizationalUnits) > 0 {
		return nil, fmt.Errorf("deployment target uses organizational units; organization access is required to expand them")
	}
	excluded := map[string]bool{}
	for _, ex := range t.ExcludedAccounts {
		excluded[ex] = true
	}
	out := []string{}
	for _, a := range t.Accounts {
		if !excluded[a] {
			out = append(out, a)
		}
	}
	return out, nil
}

// MapMetadata resolves identity-store principals from a fixed table keyed
// "TYPE/name".
type MapMetadata map[string]string

func (m MapMetadata) ResolvePrincipals(_ context.Context, refs []config.PrincipalConfig, _ string) ([]PrincipalMetadata, error) {
	out := make([]PrincipalMetadata, 0, len(refs))
	for _, r := range refs {
		id, ok := m[r.Type+"/"+r.Name]
		if !ok {
			return nil, fmt.Errorf("principal %s/%s has no configured id", r.Type, r.Name)
		}
		out = append(out, PrincipalMetadata{Type: r.Type, Name: r.Name, ID: id})
	}
	return out, nil
}
