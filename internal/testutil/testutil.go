// Package testutil provides in-memory collaborator fakes for compiler tests.
package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/config"
	"github.com/stackaccel/identity-compiler/internal/utils/logging"
)

// StaticAccounts resolves account names from a fixed map and counts lookups.
type StaticAccounts struct {
	IDs     map[string]string
	Lookups int
}

func (a *StaticAccounts) AccountID(name string) (string, bool) {
	a.Lookups++
	id, ok := a.IDs[name]
	return id, ok
}

// StaticProviders resolves provider ARNs from a fixed map.
type StaticProviders struct {
	Arns map[string]string
}

func (p *StaticProviders) ProviderArn(name string) (string, bool) {
	arn, ok := p.Arns[name]
	return arn, ok
}

// StaticTargets expands deployment targets from their literal account list,
// honoring exclusions.
type StaticTargets struct{}

func (StaticTargets) Included(t config.DeploymentTargets, accountID string) (bool, error) {
	for _, ex := range t.ExcludedAccounts {
		if ex == accountID {
			return false, nil
		}
	}
	if len(t.Accounts) == 0 && len(t.OrganizationalUnits) == 0 {
		return true, nil
	}
	for _, a := range t.Accounts {
		if a == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (StaticTargets) AccountIDs(t config.DeploymentTargets) ([]string, error) {
	out := []string{}
	for _, a := range t.Accounts {
		excluded := false
		for _, ex := range t.ExcludedAccounts {
			if ex == a {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, a)
		}
	}
	return out, nil
}

// StaticMetadata resolves identity-store principals by synthesizing ids from
// a fixed map keyed "TYPE/name".
type StaticMetadata struct {
	IDs   map[string]string
	Calls int
}

func (m *StaticMetadata) ResolvePrincipals(_ context.Context, refs []config.PrincipalConfig, _ string) ([]compile.PrincipalMetadata, error) {
	m.Calls++
	out := make([]compile.PrincipalMetadata, 0, len(refs))
	for _, r := range refs {
		id, ok := m.IDs[r.Type+"/"+r.Name]
		if !ok {
			return nil, fmt.Errorf("principal %s/%s not found in identity store", r.Type, r.Name)
		}
		out = append(out, compile.PrincipalMetadata{Type: r.Type, Name: r.Name, ID: id})
	}
	return out, nil
}

// MapDocuments serves policy documents from an in-memory map, applying the
// same ${VAR} substitution as the file loader.
type MapDocuments struct {
	Docs map[string]string
}

func (d *MapDocuments) Load(path string, vars map[string]string) ([]byte, error) {
	doc, ok := d.Docs[path]
	if !ok {
		return nil, fmt.Errorf("no document at %s", path)
	}
	for k, v := range vars {
		doc = strings.ReplaceAll(doc, "${"+k+"}", v)
	}
	return []byte(doc), nil
}

// RecordingAudit captures audit-suppression notes for assertions.
type RecordingAudit struct {
	Notes []string
}

func (a *RecordingAudit) SuppressRule(resourcePath, ruleID, _ string) {
	a.Notes = append(a.Notes, resourcePath+":"+ruleID)
}

// BufferLogger records formatted log lines, prefixed with their level, for
// assertions.
type BufferLogger struct{ Calls []string }

func (l *BufferLogger) Debugf(format string, args ...any) {
	l.Calls = append(l.Calls, "debug: "+fmt.Sprintf(format, args...))
}

func (l *BufferLogger) Infof(format string, args ...any) {
	l.Calls = append(l.Calls, "info: "+fmt.Sprintf(format, args...))
}

func (l *BufferLogger) Warnf(format string, args ...any) {
	l.Calls = append(l.Calls, "warn: "+fmt.Sprintf(format, args...))
}

var _ logging.Logger = (*BufferLogger)(nil)

// Env assembles a compile environment from the fakes with sane defaults.
func Env(partition string) (*compile.Env, *StaticAccounts, *StaticProviders, *StaticMetadata, *MapDocuments) {
	accounts := &StaticAccounts{IDs: map[string]string{}}
	providers := &StaticProviders{Arns: map[string]string{}}
	metadata := &StaticMetadata{IDs: map[string]string{}}
	docs := &MapDocuments{Docs: map[string]string{}}
	env := &compile.Env{
		Partition: partition,
		Accounts:  accounts,
		Providers: providers,
		Targets:   StaticTargets{},
		Metadata:  metadata,
		Documents: docs,
		Log:       logging.NopLogger{},
	}
	return env, accounts, providers, metadata, docs
}
