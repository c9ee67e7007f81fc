package compile

import (
	"encoding/json"
	"fmt"

	"github.com/stackaccel/identity-compiler/internal/utils"
)

// PolicyDocument is a parsed IAM policy document. JSON holds the canonical
// (minified) serialization for stable comparison and upload.
type PolicyDocument struct {
	Version    string
	ID         string
	Statements []Statement
	JSON       string
}

// Statement is one typed policy statement.
type Statement struct {
	Sid         string                           `json:"Sid,omitempty"`
	Effect      string                           `json:"Effect"`
	Action      StringList                       `json:"Action,omitempty"`
	NotAction   StringList                       `json:"NotAction,omitempty"`
	Resource    StringList                       `json:"Resource,omitempty"`
	NotResource StringList                       `json:"NotResource,omitempty"`
	Principal   json.RawMessage                  `json:"Principal,omitempty"`
	Condition   map[string]map[string]StringList `json:"Condition,omitempty"`
}

// StringList accepts the IAM JSON convention of a bare string or an array of
// strings.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = StringList(many)
	return nil
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// rawDocument mirrors the wire shape; Statement may be an object or an array.
type rawDocument struct {
	Version   string          `json:"Version"`
	ID        string          `json:"Id,omitempty"`
	Statement json.RawMessage `json:"Statement"`
}

// ParseDocument converts a fully substituted JSON policy document into typed
// statements. entry names the configuration entry for error reporting.
func ParseDocument(entry string, raw []byte) (*PolicyDocument, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &MalformedPolicyDocumentError{Entry: entry, Cause: err}
	}
	if len(doc.Statement) == 0 {
		return nil, &MalformedPolicyDocumentError{Entry: entry, Cause: fmt.Errorf("document has no Statement")}
	}
	var stmts []Statement
	if err := json.Unmarshal(doc.Statement, &stmts); err != nil {
		var one Statement
		if err2 := json.Unmarshal(doc.Statement, &one); err2 != nil {
			return nil, &MalformedPolicyDocumentError{Entry: entry, Cause: err}
		}
		stmts = []Statement{one}
	}
	for i, st := range stmts {
		if st.Effect != "Allow" && st.Effect != "Deny" {
			return nil, &MalformedPolicyDocumentError{
				Entry: entry,
				Cause: fmt.Errorf("statement %d: Effect must be Allow or Deny, got %q", i, st.Effect),
			}
		}
	}
	return &PolicyDocument{
		Version:    doc.Version,
		ID:         doc.ID,
		Statements: stmts,
		JSON:       utils.NormalizeJSON(string(raw)),
	}, nil
}

// ResolveInlineDocument loads a policy document through the injected loader
// (which applies variable substitution) and parses it.
func ResolveInlineDocument(entry, path string, vars map[string]string, env *Env) (*PolicyDocument, error) {
	raw, err := env.Documents.Load(path, vars)
	if err != nil {
		// Collaborator failures propagate unchanged.
		return nil, err
	}
	return ParseDocument(entry, raw)
}
