package bringup

import (
	"strings"
	"testing"

	"github.com/obkit/obup/pkg/config"
	"github.com/obkit/obup/pkg/execute"
	"github.com/obkit/obup/pkg/render"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ClusterName = "ob"
	cfg.TenantName = "test"
	cfg.RootPassword = "123456"
	cfg.TenantPassword = "654321"
	cfg.ProxyroPassword = "proxyro"
	return cfg
}

func TestStages_OrdinalsStrictlyIncreasing(t *testing.T) {
	stages := Stages(testConfig(), execute.NewExecutor())

	if len(stages) == 0 {
		t.Fatal("Expected a non-empty pipeline")
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].Ordinal <= stages[i-1].Ordinal {
			t.Errorf("Ordinals not strictly increasing at %q (%d after %d)",
				stages[i].Name, stages[i].Ordinal, stages[i-1].Ordinal)
		}
	}
}

func TestStages_Criticality(t *testing.T) {
	stages := Stages(testConfig(), execute.NewExecutor())

	critical := map[string]bool{}
	for _, stage := range stages {
		critical[stage.Name] = stage.Critical
	}

	// Everything the proxy and tenant depend on must halt the run
	for _, name := range []string{"observer-start", "cluster-bootstrap", "proxy-user", "proxy-start", "tenant-create"} {
		if !critical[name] {
			t.Errorf("Expected stage %q to be critical", name)
		}
	}
	// Best-effort stages must not
	for _, name := range []string{"tenant-password", "logproxy-deploy", "grant-optional-user"} {
		if critical[name] {
			t.Errorf("Expected stage %q to be non-critical", name)
		}
	}
}

func TestStages_ObserverGatedOnPort(t *testing.T) {
	stages := Stages(testConfig(), execute.NewExecutor())

	observer := stages[0]
	if observer.Name != "observer-start" {
		t.Fatalf("Expected observer-start first, got %q", observer.Name)
	}
	if observer.Post == nil {
		t.Fatal("Expected observer-start to declare post-readiness")
	}
	if observer.Post.Checker.Type() != "tcp" {
		t.Errorf("Expected TCP readiness on the client port, got %q", observer.Post.Checker.Type())
	}
	if len(observer.Renders) != 1 {
		t.Errorf("Expected observer config render, got %d renders", len(observer.Renders))
	}
}

func TestTemplates_RenderAgainstConfigVars(t *testing.T) {
	vars := testConfig().Vars()

	tests := []struct {
		name     string
		template string
		contains string
	}{
		{"observer", observerConfTemplate, "memory_limit=6G"},
		{"obproxy", obproxyConfTemplate, "listen_port=2883"},
		{"logproxy", logproxyConfTemplate, `"cluster": "ob"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := render.Render(tt.template, vars)
			if err != nil {
				t.Fatalf("Template must render against config vars: %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("Expected rendered output to contain %q, got:\n%s", tt.contains, out)
			}
			if strings.Contains(out, "${") {
				t.Errorf("Unsubstituted placeholder left in output:\n%s", out)
			}
		})
	}
}

func TestSQLSteps_UseClientBinary(t *testing.T) {
	cfg := testConfig()
	stages := Stages(cfg, execute.NewExecutor())

	var bootstrap *struct {
		program string
		args    []string
	}
	for _, stage := range stages {
		if stage.Name != "cluster-bootstrap" {
			continue
		}
		for _, step := range stage.Steps {
			if step.Name == "bootstrap-cluster" {
				bootstrap = &struct {
					program string
					args    []string
				}{step.Spec.Program, step.Spec.Args}
			}
		}
	}
	if bootstrap == nil {
		t.Fatal("Expected a bootstrap-cluster step")
	}
	if bootstrap.program != cfg.MySQLBin {
		t.Errorf("Expected SQL via %q, got %q", cfg.MySQLBin, bootstrap.program)
	}
	joined := strings.Join(bootstrap.args, " ")
	if !strings.Contains(joined, "ALTER SYSTEM BOOTSTRAP") {
		t.Errorf("Expected bootstrap statement in args, got %q", joined)
	}
	if !strings.Contains(joined, "-P 2881") {
		t.Errorf("Expected client port in args, got %q", joined)
	}
}

func TestTenantPassword_VerifiesByQuery(t *testing.T) {
	stages := Stages(testConfig(), execute.NewExecutor())

	for _, stage := range stages {
		if stage.Name != "tenant-password" {
			continue
		}
		last := stage.Steps[len(stage.Steps)-1]
		if last.Name != "verify-tenant-password" {
			t.Fatalf("Expected verification as the final step, got %q", last.Name)
		}
		if last.Check == nil {
			t.Fatal("Expected an output predicate on the verification step")
		}
		if err := last.Check(execute.Result{Stdout: "1\n"}); err != nil {
			t.Errorf("Expected '1' to satisfy the predicate: %v", err)
		}
		if err := last.Check(execute.Result{Stdout: ""}); err == nil {
			t.Error("Expected empty output to fail the predicate")
		}
		return
	}
	t.Fatal("tenant-password stage not found")
}
