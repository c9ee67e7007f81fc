package provider

import (
	"os"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"
	tftest "github.com/hashicorp/terraform-plugin-testing/helper/resource"
)

func TestAcc_Plan_basic(t *testing.T) {
	if os.Getenv("TF_ACC") == "" {
		t.Skip("set TF_ACC to run acceptance tests")
	}
	cfg := `
provider "identitycompiler" {}
data "identitycompiler_plan" "test" {
  account_id = "111122223333"
  region     = "us-east-1"
  config_yaml = <<-EOT
    roleSets:
      - deploymentTargets:
          accounts: ["111122223333"]
        roles:
          - name: ops
            assumedBy:
              - type: service
                principal: ec2.amazonaws.com
            policies:
              awsManaged: [ReadOnlyAccess]
  EOT
}
`
	tftest.Test(t, tftest.TestCase{
		ProtoV6ProviderFactories: map[string]func() (tfprotov6.ProviderServer, error){
			"identitycompiler": providerserver.NewProtocol6WithError(New("dev")()),
		},
		Steps: []tftest.TestStep{{
			Config: cfg,
			Check: tftest.ComposeAggregateTestCheckFunc(
				tftest.TestCheckResourceAttr("data.identitycompiler_plan.test", "role_count", "1"),
				tftest.TestCheckResourceAttrSet("data.identitycompiler_plan.test", "plan_json"),
			),
		}},
	})
}
