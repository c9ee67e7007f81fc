// Package compile resolves a declarative identity-and-access configuration
// into dependency-ordered resource definitions for one deployment target.
// Compilation is a pure, terminating transformation: every external lookup
// lives behind an interface on Env, outputs are never mutated after creation,
// and compiling twice with identical inputs yields structurally equal plans.
package compile

import (
	"context"

	"github.com/stackaccel/identity-compiler/internal/config"
	"github.com/stackaccel/identity-compiler/internal/utils/logging"
)

// AccountResolver maps symbolic account names to account ids.
type AccountResolver interface {
	// AccountID returns the id for an account name; ok is false when the
	// name has no entry.
	AccountID(name string) (id string, ok bool)
}

// ProviderRegistry maps identity provider names to the ARNs of previously
// registered providers.
type ProviderRegistry interface {
	ProviderArn(name string) (arn string, ok bool)
}

// TargetExpander evaluates deployment-target membership. Its internals
// (organizational units, exclusions) are opaque to the compiler.
type TargetExpander interface {
	// Included reports whether accountID falls inside the target scope.
	Included(t config.DeploymentTargets, accountID string) (bool, error)
	// AccountIDs expands the target scope into concrete account ids.
	AccountIDs(t config.DeploymentTargets) ([]string, error)
}

// PrincipalMetadata is one concrete principal resolved from the external
// identity store.
type PrincipalMetadata struct {
	Type string // USER or GROUP
	Name string
	ID   string
}

// MetadataResolver resolves symbolic user/group references against the
// external identity store.
type MetadataResolver interface {
	ResolvePrincipals(ctx context.Context, refs []config.PrincipalConfig, identityStoreID string) ([]PrincipalMetadata, error)
}

// DocumentLoader loads a policy JSON document and applies variable
// substitution. The compiler only sees the substituted bytes.
type DocumentLoader interface {
	Load(path string, vars map[string]string) ([]byte, error)
}

// AuditNotifier receives audit-suppression notes. Calls are fire-and-forget;
// the compiler never consumes a return value.
type AuditNotifier interface {
	SuppressRule(resourcePath, ruleID, reason string)
}

// Env carries the injected collaborators for one compilation run. Registries
// built during a run (policies, permission sets) are threaded as explicit
// values, not stored here.
type Env struct {
	// Partition of the target deployment ("aws", "aws-cn", "aws-us-gov").
	Partition string

	Accounts  AccountResolver
	Providers ProviderRegistry
	Targets   TargetExpander
	Metadata  MetadataResolver
	Documents DocumentLoader
	Audit     AuditNotifier
	Log       logging.Logger
}

func (e *Env) logger() logging.Logger {
	if e.Log == nil {
		return logging.NopLogger{}
	}
	return e.Log
}

func (e *Env) suppress(resourcePath, ruleID, reason string) {
	if e.Audit != nil {
		e.Audit.SuppressRule(resourcePath, ruleID, reason)
	}
}

// Target identifies one deployment account/region pair.
type Target struct {
	AccountID string
	Region    string
}
