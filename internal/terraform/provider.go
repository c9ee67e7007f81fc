// Package provider implements the Terraform provider exposing the identity
// configuration compiler as a data source. Provisioning stays in ordinary
// Terraform resources; the data source emits the compiled, dependency-ordered
// plan for the caller to feed into them.
package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
)

// Ensure implementation satisfies expected interfaces
var _ provider.Provider = (*identityCompilerProvider)(nil)

type identityCompilerProvider struct {
	version string
}

// New returns a provider factory closure with the given version string.
func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &identityCompilerProvider{version: version}
	}
}

func (p *identityCompilerProvider) Metadata(_ context.Context, _ provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "identitycompiler"
	resp.Version = p.version
}

func (p *identityCompilerProvider) Schema(_ context.Context, _ provider.SchemaRequest, resp *provider.SchemaResponse) {
	// No provider-level configuration; everything lives on the data source.
	resp.Schema = schema.Schema{
		Attributes: map[string]schema.Attribute{},
	}
}

func (p *identityCompilerProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	// Nothing; AWS config is discovered via the default chain when needed.
}

func (p *identityCompilerProvider) Resources(_ context.Context) []func() resource.Resource {
	return nil
}

func (p *identityCompilerProvider) DataSources(_ context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewPlanDataSource,
	}
}
