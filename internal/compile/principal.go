package compile

import (
	"regexp"

	awsarn "github.com/aws/aws-sdk-go-v2/aws/arn"

	"github.com/stackaccel/identity-compiler/internal/config"
)

// ResolvedKind tags a resolved trust principal.
type ResolvedKind string

const (
	// ResolvedService is an AWS service principal (identifier is the service
	// name, e.g. "ec2.amazonaws.com").
	ResolvedService ResolvedKind = "service"
	// ResolvedAccount is an account principal (identifier is a 12-digit id).
	ResolvedAccount ResolvedKind = "account"
	// ResolvedFederated is a federated identity provider principal
	// (identifier is the provider ARN).
	ResolvedFederated ResolvedKind = "federated"
)

// ResolvedPrincipal is the concrete, typed descriptor produced from one
// symbolic trust-principal reference. Conditions carries extra trust-policy
// conditions some partitions require; rendering either form is the caller's
// concern.
type ResolvedPrincipal struct {
	Kind       ResolvedKind
	Identifier string
	Conditions map[string][]string
}

var accountIDRe = regexp.MustCompile(`^\d{12}$`)

// samlAudienceByPartition maps partitions that need an explicit SAML audience
// condition on federated trust. Partitions absent from this map use the
// standard console sign-in audience at render time.
var samlAudienceByPartition = map[string]string{
	"aws-cn": "https://signin.amazonaws.cn/saml",
}

// ResolvePrincipal converts one symbolic reference into a concrete principal
// descriptor. entry names the configuration entry for error reporting. The
// function is pure over the injected lookups on env.
func ResolvePrincipal(ref config.AssumedByConfig, entry string, env *Env) (ResolvedPrincipal, error) {
	switch ref.Type {
	case config.PrincipalTypeService:
		return ResolvedPrincipal{Kind: ResolvedService, Identifier: ref.Principal}, nil

	case config.PrincipalTypeAccount:
		id, err := resolveAccountID(ref.Principal, entry, env)
		if err != nil {
			return ResolvedPrincipal{}, err
		}
		return ResolvedPrincipal{Kind: ResolvedAccount, Identifier: id}, nil

	case config.PrincipalTypeProvider:
		arn, ok := env.Providers.ProviderArn(ref.Principal)
		if !ok {
			return ResolvedPrincipal{}, &UnknownProviderReferenceError{Entry: entry, Provider: ref.Principal}
		}
		p := ResolvedPrincipal{Kind: ResolvedFederated, Identifier: arn}
		if aud, ok := samlAudienceByPartition[env.Partition]; ok {
			p.Conditions = map[string][]string{"SAML:aud": {aud}}
		}
		return p, nil
	}
	// Config validation rejects unknown types before compilation.
	return ResolvedPrincipal{}, &UnresolvableAccountReferenceError{Entry: entry, Value: ref.Principal}
}

// resolveAccountID classifies an account reference by three mutually
// exclusive patterns, tested in order: bare 12-digit id, account-root ARN in
// the active partition, then symbolic account name.
func resolveAccountID(value, entry string, env *Env) (string, error) {
	if accountIDRe.MatchString(value) {
		return value, nil
	}
	if id, ok := rootArnAccountID(value, env.Partition); ok {
		return id, nil
	}
	if env.Accounts != nil {
		if id, ok := env.Accounts.AccountID(value); ok {
			return id, nil
		}
	}
	return "", &UnresolvableAccountReferenceError{Entry: entry, Value: value}
}

// rootArnAccountID extracts the account id from an account-root ARN
// (arn:<partition>:iam::<12 digits>:root) in the given partition.
func rootArnAccountID(value, partition string) (string, bool) {
	if !awsarn.IsARN(value) {
		return "", false
	}
	a, err := awsarn.Parse(value)
	if err != nil {
		return "", false
	}
	if a.Partition != partition || a.Service != "iam" || a.Region != "" || a.Resource != "root" {
		return "", false
	}
	if !accountIDRe.MatchString(a.AccountID) {
		return "", false
	}
	return a.AccountID, true
}
