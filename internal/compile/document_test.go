package compile_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stackaccel/identity-compiler/internal/compile"
	"github.com/stackaccel/identity-compiler/internal/testutil"
)

func TestParseDocumentStatementForms(t *testing.T) {
	// Statement may be a single object or an array; Action and Resource accept
	// the bare-string shorthand.
	object := `{"Version":"2012-10-17","Statement":{"Effect":"Allow","Action":"s3:GetObject","Resource":"*"}}`
	array := `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["s3:GetObject"],"Resource":["*"]}]}`

	a, err := compile.ParseDocument("p", []byte(object))
	if err != nil {
		t.Fatalf("object form: %v", err)
	}
	b, err := compile.ParseDocument("p", []byte(array))
	if err != nil {
		t.Fatalf("array form: %v", err)
	}
	if !reflect.DeepEqual(a.Statements, b.Statements) {
		t.Fatalf("forms should parse identically: %+v vs %+v", a.Statements, b.Statements)
	}
	if a.Version != "2012-10-17" {
		t.Fatalf("got version %q", a.Version)
	}
}

func TestParseDocumentRejectsBadEffect(t *testing.T) {
	raw := `{"Version":"2012-10-17","Statement":[{"Effect":"Maybe","Action":"s3:*","Resource":"*"}]}`
	_, err := compile.ParseDocument("my-policy", []byte(raw))
	var want *compile.MalformedPolicyDocumentError
	if !errors.As(err, &want) {
		t.Fatalf("expected MalformedPolicyDocumentError, got %v", err)
	}
	if want.Entry != "my-policy" {
		t.Fatalf("error should name the entry, got %+v", want)
	}
	if !strings.Contains(err.Error(), "Effect") {
		t.Fatalf("error should mention the bad Effect: %v", err)
	}
}

func TestParseDocumentRejectsEmptyStatement(t *testing.T) {
	_, err := compile.ParseDocument("p", []byte(`{"Version":"2012-10-17"}`))
	var want *compile.MalformedPolicyDocumentError
	if !errors.As(err, &want) {
		t.Fatalf("expected MalformedPolicyDocumentError, got %v", err)
	}
}

func TestParseDocumentMalformedJSONWrapsCause(t *testing.T) {
	_, err := compile.ParseDocument("p", []byte(`{not json`))
	var want *compile.MalformedPolicyDocumentError
	if !errors.As(err, &want) {
		t.Fatalf("expected MalformedPolicyDocumentError, got %v", err)
	}
	if want.Unwrap() == nil {
		t.Fatal("parse failure should carry its cause")
	}
}

func TestResolveInlineDocumentSubstitutes(t *testing.T) {
	env, _, _, _, docs := testutil.Env("aws")
	docs.Docs["policies/scoped.json"] = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"s3:GetObject","Resource":"arn:${PARTITION}:s3:::logs-${ACCOUNT_ID}/*"}]}`

	doc, err := compile.ResolveInlineDocument("scoped", "policies/scoped.json", map[string]string{
		"ACCOUNT_ID": "111122223333",
		"PARTITION":  "aws",
	}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := doc.Statements[0].Resource
	if len(res) != 1 || res[0] != "arn:aws:s3:::logs-111122223333/*" {
		t.Fatalf("substitution failed, got %v", res)
	}
}

func TestResolveInlineDocumentLoaderErrorPropagates(t *testing.T) {
	env, _, _, _, _ := testutil.Env("aws")
	_, err := compile.ResolveInlineDocument("p", "missing.json", nil, env)
	if err == nil {
		t.Fatal("expected error")
	}
	// Loader failures are not document errors; they pass through unchanged.
	var malformed *compile.MalformedPolicyDocumentError
	if errors.As(err, &malformed) {
		t.Fatalf("loader error must not be wrapped as a document error: %v", err)
	}
}

func TestStringListMarshalShorthand(t *testing.T) {
	one, err := compile.StringList{"s3:GetObject"}.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(one) != `"s3:GetObject"` {
		t.Fatalf("single element should marshal as a bare string, got %s", one)
	}
	many, err := compile.StringList{"a", "b"}.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(many) != `["a","b"]` {
		t.Fatalf("got %s", many)
	}
}
