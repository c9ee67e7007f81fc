package compile

import (
	"encoding/json"
	"fmt"
)

// defaultSamlAudience is the console sign-in audience used when the active
// partition does not mandate its own.
const defaultSamlAudience = "https://signin.aws.amazon.com/saml"

// TrustPolicyJSON renders the assume-role policy document for a role's
// resolved principals. A single federated principal produces an
// AssumeRoleWithSAML statement; any other combination produces one composite
// AssumeRole statement trusting all principals at once.
func TrustPolicyJSON(partition string, principals []ResolvedPrincipal) (string, error) {
	if len(principals) == 0 {
		return "", fmt.Errorf("trust policy requires at least one principal")
	}

	if len(principals) == 1 && principals[0].Kind == ResolvedFederated {
		return federatedTrustJSON(principals[0])
	}

	principal := map[string]any{}
	var services, accounts []string
	for _, p := range principals {
		switch p.Kind {
		case ResolvedService:
			services = append(services, p.Identifier)
		case ResolvedAccount:
			accounts = append(accounts, fmt.Sprintf("arn:%s:iam::%s:root", partition, p.Identifier))
		default:
			return "", fmt.Errorf("federated principal cannot be combined with other trust principals")
		}
	}
	if len(services) > 0 {
		principal["Service"] = stringOrList(services)
	}
	if len(accounts) > 0 {
		principal["AWS"] = stringOrList(accounts)
	}

	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{map[string]any{
			"Effect":    "Allow",
			"Principal": principal,
			"Action":    "sts:AssumeRole",
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode trust policy: %w", err)
	}
	return string(raw), nil
}

func federatedTrustJSON(p ResolvedPrincipal) (string, error) {
	audience := defaultSamlAudience
	if auds, ok := p.Conditions["SAML:aud"]; ok && len(auds) > 0 {
		audience = auds[0]
	}
	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{map[string]any{
			"Effect":    "Allow",
			"Principal": map[string]any{"Federated": p.Identifier},
			"Action":    "sts:AssumeRoleWithSAML",
			"Condition": map[string]any{
				"StringEquals": map[string]any{"SAML:aud": audience},
			},
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode trust policy: %w", err)
	}
	return string(raw), nil
}

func stringOrList(values []string) any {
	if len(values) == 1 {
		return values[0]
	}
	return values
}
