package compile

import (
	"fmt"

	"github.com/stackaccel/identity-compiler/internal/config"
)

// CustomerManagedPolicyRef references a customer-managed policy attached to
// a permission set by name and optional IAM path.
type CustomerManagedPolicyRef struct {
	Name string
	Path string
}

// PermissionsBoundary caps a permission set's effective permissions. Exactly
// one of the two fields is populated.
type PermissionsBoundary struct {
	CustomerManagedPolicy *CustomerManagedPolicyRef
	ManagedPolicyArn      string
}

// PermissionSetDefinition is one resolved Identity Center permission set.
// DependsOn lists the logical ids of every permission set compiled earlier
// in the same run: a deliberate total order, so the provisioning engine never
// mutates two permission sets concurrently.
type PermissionSetDefinition struct {
	LogicalID   string
	Name        string
	InstanceArn string

	ManagedPolicyArns         []string
	CustomerManagedPolicyRefs []CustomerManagedPolicyRef
	InlinePolicy              *PolicyDocument
	// SessionDuration is an ISO-8601 duration; empty when not configured.
	SessionDuration string
	Boundary        *PermissionsBoundary

	DependsOn []string
}

// PermissionSetRegistry maps permission-set names to the ARN references that
// assignments resolve against. The reference is a logical id; the
// provisioning engine substitutes the real ARN once the resource exists.
type PermissionSetRegistry struct {
	arnRefs map[string]string
}

// NewPermissionSetRegistry returns an empty registry.
func NewPermissionSetRegistry() *PermissionSetRegistry {
	return &PermissionSetRegistry{arnRefs: map[string]string{}}
}

// ArnRef returns the ARN reference registered for a permission-set name.
func (r *PermissionSetRegistry) ArnRef(name string) (string, bool) {
	ref, ok := r.arnRefs[name]
	return ref, ok
}

func (r *PermissionSetRegistry) register(name, ref string) {
	r.arnRefs[name] = ref
}

// PermissionSetLogicalID derives the logical id for a permission set name.
func PermissionSetLogicalID(name string) string {
	return "permission-set/" + name
}

// CompilePermissionSets resolves every permission-set entry in configuration
// order and threads the total-order dependency chain across them. The
// returned registry is consulted by the assignment compiler.
func CompilePermissionSets(ic *config.IdentityCenterConfig, instanceArn string, vars map[string]string, reg *PolicyRegistry, env *Env) ([]PermissionSetDefinition, *PermissionSetRegistry, error) {
	psReg := NewPermissionSetRegistry()
	if ic == nil {
		return nil, psReg, nil
	}
	out := make([]PermissionSetDefinition, 0, len(ic.PermissionSets))
	chain := make([]string, 0, len(ic.PermissionSets))

	for _, pc := range ic.PermissionSets {
		def := PermissionSetDefinition{
			LogicalID:   PermissionSetLogicalID(pc.Name),
			Name:        pc.Name,
			InstanceArn: instanceArn,
		}
		if pc.SessionDuration > 0 {
			def.SessionDuration = ISODuration(pc.SessionDuration)
		}

		if pol := pc.Policies; pol != nil {
			// Customer-managed and accelerator-managed entries both collapse
			// into plain name references.
			for _, ref := range pol.CustomerManaged {
				def.CustomerManagedPolicyRefs = append(def.CustomerManagedPolicyRefs,
					CustomerManagedPolicyRef{Name: ref.Name, Path: ref.Path})
			}
			for _, name := range pol.AcceleratorManaged {
				def.CustomerManagedPolicyRefs = append(def.CustomerManagedPolicyRefs,
					CustomerManagedPolicyRef{Name: name})
			}
			for _, name := range pol.AwsManaged {
				def.ManagedPolicyArns = append(def.ManagedPolicyArns, AwsManagedPolicyArn(env.Partition, name))
			}
			boundary, err := resolvePermissionSetBoundary(pc.Name, pol.PermissionsBoundary, env)
			if err != nil {
				return nil, nil, err
			}
			def.Boundary = boundary
			if pol.InlinePolicy != "" {
				doc, err := ResolveInlineDocument(pc.Name, pol.InlinePolicy, vars, env)
				if err != nil {
					return nil, nil, err
				}
				def.InlinePolicy = doc
			}
		}

		// Every permission set depends on all of its predecessors in this
		// run; the platform's concurrent-mutation limits are undocumented,
		// so creation is fully serialized.
		def.DependsOn = append([]string(nil), chain...)
		chain = append(chain, def.LogicalID)

		psReg.register(def.Name, def.LogicalID)
		out = append(out, def)
	}
	return out, psReg, nil
}

// resolvePermissionSetBoundary picks the boundary form. The customer-managed
// form wins when both are configured; that precedence is logged so operators
// notice the conflicting configuration.
func resolvePermissionSetBoundary(entry string, bc *config.PermissionsBoundaryConfig, env *Env) (*PermissionsBoundary, error) {
	if bc == nil {
		return nil, nil
	}
	if bc.CustomerManagedPolicy != nil {
		if bc.AwsManagedPolicyName != "" {
			env.logger().Warnf("permission set %q: both customerManagedPolicy and awsManagedPolicyName boundaries configured; using the customer-managed policy", entry)
		}
		return &PermissionsBoundary{
			CustomerManagedPolicy: &CustomerManagedPolicyRef{
				Name: bc.CustomerManagedPolicy.Name,
				Path: bc.CustomerManagedPolicy.Path,
			},
		}, nil
	}
	if bc.AwsManagedPolicyName != "" {
		return &PermissionsBoundary{
			ManagedPolicyArn: AwsManagedPolicyArn(env.Partition, bc.AwsManagedPolicyName),
		}, nil
	}
	return nil, nil
}

// ISODuration converts a minutes value into an ISO-8601 duration string.
func ISODuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("PT%dH%dM", h, m)
	case h > 0:
		return fmt.Sprintf("PT%dH", h)
	default:
		return fmt.Sprintf("PT%dM", m)
	}
}
