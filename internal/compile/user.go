package compile

import "github.com/stackaccel/identity-compiler/internal/config"

// UserDefinition is one resolved IAM user. Console credentials are handled
// by the secret-storage collaborator, not modeled here.
type UserDefinition struct {
	Username string
	Group    string
	Boundary *ResolvedPolicy
}

// CompileUser resolves one user configuration entry.
func CompileUser(uc config.UserConfig, reg *PolicyRegistry, env *Env) (*UserDefinition, error) {
	boundary, err := ResolveBoundary(uc.Username, uc.BoundaryPolicy, reg)
	if err != nil {
		return nil, err
	}
	return &UserDefinition{Username: uc.Username, Group: uc.Group, Boundary: boundary}, nil
}
