// Package bringup encodes the concrete cold-start pipeline: observer
// first, then cluster bootstrap, then the proxy layer, tenant setup, and
// finally the log-replication service. The catalog turns an immutable
// config into the ordered, criticality-flagged stage list the
// orchestrator runs; all sequencing and failure policy lives in the
// pipeline and orchestrator packages.
package bringup

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/obkit/obup/pkg/config"
	"github.com/obkit/obup/pkg/execute"
	"github.com/obkit/obup/pkg/pipeline"
	"github.com/obkit/obup/pkg/probe"
)

// Stages builds the full bring-up pipeline for the given config. The
// runner is only used by readiness checkers that probe via commands; the
// stages themselves carry plain command specs.
//
// Criticality follows the dependency structure: everything the proxy and
// tenant depend on is critical, while tenant password hardening, the
// log-replication service, and optional grants are best-effort.
func Stages(cfg *config.Config, runner execute.Runner) []pipeline.Stage {
	b := &builder{cfg: cfg, runner: runner}
	return []pipeline.Stage{
		b.observerStart(1),
		b.clusterBootstrap(2),
		b.proxyUser(3),
		b.proxyStart(4),
		b.tenantCreate(5),
		b.tenantPassword(6),
		b.logproxyDeploy(7),
		b.optionalGrants(8),
	}
}

type builder struct {
	cfg    *config.Config
	runner execute.Runner
}

// observerStart launches the storage node and waits for its client port
// to answer.
func (b *builder) observerStart(ordinal int) pipeline.Stage {
	cfg := b.cfg
	return pipeline.Stage{
		Name:     "observer-start",
		Ordinal:  ordinal,
		Critical: true,
		Renders: []pipeline.RenderSpec{{
			Name:     "observer-config",
			Template: observerConfTemplate,
			Vars:     cfg.Vars(),
			Path:     filepath.Join(cfg.HomePath, "etc", "observer.conf"),
		}},
		Steps: []pipeline.Step{{
			Name: "launch-observer",
			Spec: execute.Spec{
				Program: cfg.ObserverBin,
				Args: []string{
					"-r", fmt.Sprintf("%s:%d:%d", cfg.Host, cfg.RPCPort, cfg.ClientPort),
					"-p", fmt.Sprintf("%d", cfg.ClientPort),
					"-P", fmt.Sprintf("%d", cfg.RPCPort),
					"-z", "zone1",
					"-c", "1",
					"-n", cfg.ClusterName,
					"-d", cfg.DataDir,
					"-o", fmt.Sprintf("config_additional_dir=%s", filepath.Join(cfg.HomePath, "etc")),
				},
				Dir:     cfg.HomePath,
				Timeout: cfg.CommandTimeout,
			},
		}},
		Post: &probe.Spec{
			Target:   "observer-port",
			Checker:  probe.NewTCPChecker(fmt.Sprintf("%s:%d", cfg.Host, cfg.ClientPort)),
			Interval: cfg.ProbeInterval,
			Timeout:  cfg.ProbeTimeout,
		},
	}
}

// clusterBootstrap initializes the cluster and sets the root password.
// Its entry gate is a bare query: the observer accepts passwordless root
// connections until bootstrap completes.
func (b *builder) clusterBootstrap(ordinal int) pipeline.Stage {
	cfg := b.cfg
	return pipeline.Stage{
		Name:     "cluster-bootstrap",
		Ordinal:  ordinal,
		Critical: true,
		Pre: &probe.Spec{
			Target: "observer-sql",
			Checker: probe.NewQueryChecker(b.runner, probe.QueryTarget{
				ClientBin: cfg.MySQLBin,
				Host:      cfg.Host,
				Port:      cfg.ClientPort,
				User:      "root",
			}, "SELECT 1"),
			Interval: cfg.ProbeInterval,
			Timeout:  cfg.ProbeTimeout,
		},
		Steps: []pipeline.Step{
			b.sql("bootstrap-cluster", cfg.ClientPort, "root", "",
				fmt.Sprintf("SET SESSION ob_query_timeout=1000000000; ALTER SYSTEM BOOTSTRAP ZONE 'zone1' SERVER '%s:%d'", cfg.Host, cfg.RPCPort)),
			b.sql("set-root-password", cfg.ClientPort, "root", "",
				fmt.Sprintf("ALTER USER 'root' IDENTIFIED BY '%s'", cfg.RootPassword)),
		},
		Post: &probe.Spec{
			Target: "bootstrap-query",
			Checker: probe.NewQueryChecker(b.runner, probe.QueryTarget{
				ClientBin: cfg.MySQLBin,
				Host:      cfg.Host,
				Port:      cfg.ClientPort,
				User:      "root",
				Password:  cfg.RootPassword,
			}, "SELECT 1").WithRowExpected(),
			Interval: cfg.ProbeInterval,
			Timeout:  cfg.ProbeTimeout,
		},
	}
}

// proxyUser creates the account the proxy layer uses to read cluster
// metadata. The proxy cannot start without it.
func (b *builder) proxyUser(ordinal int) pipeline.Stage {
	cfg := b.cfg
	return pipeline.Stage{
		Name:     "proxy-user",
		Ordinal:  ordinal,
		Critical: true,
		Steps: []pipeline.Step{
			b.sql("create-proxyro", cfg.ClientPort, "root", cfg.RootPassword,
				fmt.Sprintf("CREATE USER IF NOT EXISTS 'proxyro' IDENTIFIED BY '%s'", cfg.ProxyroPassword)),
			b.sql("grant-proxyro", cfg.ClientPort, "root", cfg.RootPassword,
				"GRANT SELECT ON oceanbase.* TO 'proxyro'"),
		},
	}
}

// proxyStart renders the proxy config, launches it, and requires a
// trivial query to succeed through the proxy port.
func (b *builder) proxyStart(ordinal int) pipeline.Stage {
	cfg := b.cfg
	return pipeline.Stage{
		Name:     "proxy-start",
		Ordinal:  ordinal,
		Critical: true,
		Renders: []pipeline.RenderSpec{{
			Name:     "obproxy-config",
			Template: obproxyConfTemplate,
			Vars:     cfg.Vars(),
			Path:     filepath.Join(cfg.HomePath, "etc", "obproxy.conf"),
		}},
		Steps: []pipeline.Step{{
			Name: "launch-obproxy",
			Spec: execute.Spec{
				Program: cfg.ObproxyBin,
				Args: []string{
					"-p", fmt.Sprintf("%d", cfg.ProxyPort),
					"-r", fmt.Sprintf("%s:%d", cfg.Host, cfg.ClientPort),
					"-n", cfg.ClusterName,
					"-o", fmt.Sprintf("obproxy_config_server_url='',proxy_mem_limited=500M,observer_sys_password=%s", cfg.ProxyroPassword),
				},
				Timeout: cfg.CommandTimeout,
			},
		}},
		Post: &probe.Spec{
			Target: "proxy-query",
			Checker: probe.NewQueryChecker(b.runner, probe.QueryTarget{
				ClientBin: cfg.MySQLBin,
				Host:      cfg.Host,
				Port:      cfg.ProxyPort,
				User:      fmt.Sprintf("root#%s", cfg.ClusterName),
				Password:  cfg.RootPassword,
			}, "SELECT 1").WithRowExpected(),
			Interval: cfg.ProbeInterval,
			Timeout:  cfg.ProbeTimeout,
		},
	}
}

// tenantCreate provisions the resource unit, resource pool, and the user
// tenant itself.
func (b *builder) tenantCreate(ordinal int) pipeline.Stage {
	cfg := b.cfg
	return pipeline.Stage{
		Name:     "tenant-create",
		Ordinal:  ordinal,
		Critical: true,
		Steps: []pipeline.Step{
			b.sql("create-resource-unit", cfg.ClientPort, "root", cfg.RootPassword,
				fmt.Sprintf("CREATE RESOURCE UNIT IF NOT EXISTS %s_unit MAX_CPU %d, MEMORY_SIZE '2G'", cfg.TenantName, cfg.CPUCount)),
			b.sql("create-resource-pool", cfg.ClientPort, "root", cfg.RootPassword,
				fmt.Sprintf("CREATE RESOURCE POOL IF NOT EXISTS %s_pool UNIT='%s_unit', UNIT_NUM=1, ZONE_LIST=('zone1')", cfg.TenantName, cfg.TenantName)),
			b.sql("create-tenant", cfg.ClientPort, "root", cfg.RootPassword,
				fmt.Sprintf("CREATE TENANT IF NOT EXISTS %s RESOURCE_POOL_LIST=('%s_pool') SET ob_tcp_invited_nodes='%%'", cfg.TenantName, cfg.TenantName)),
		},
	}
}

// tenantPassword hardens the tenant's root account and verifies the new
// credentials actually work. Best-effort: a failure here leaves a usable
// cluster with a default password, which is recorded but not fatal.
func (b *builder) tenantPassword(ordinal int) pipeline.Stage {
	cfg := b.cfg
	tenantRoot := fmt.Sprintf("root@%s", cfg.TenantName)
	verify := b.sql("verify-tenant-password", cfg.ClientPort, tenantRoot, cfg.TenantPassword, "SELECT 1")
	verify.Check = func(res execute.Result) error {
		if strings.TrimSpace(res.Stdout) != "1" {
			return fmt.Errorf("verification query did not return 1, got %q", strings.TrimSpace(res.Stdout))
		}
		return nil
	}
	return pipeline.Stage{
		Name:     "tenant-password",
		Ordinal:  ordinal,
		Critical: false,
		Steps: []pipeline.Step{
			b.sql("set-tenant-password", cfg.ClientPort, tenantRoot, "",
				fmt.Sprintf("ALTER USER 'root' IDENTIFIED BY '%s'", cfg.TenantPassword)),
			verify,
		},
	}
}

// logproxyDeploy renders the log-replication service config and runs its
// deploy command, then registers the cluster with it.
func (b *builder) logproxyDeploy(ordinal int) pipeline.Stage {
	cfg := b.cfg
	return pipeline.Stage{
		Name:     "logproxy-deploy",
		Ordinal:  ordinal,
		Critical: false,
		Renders: []pipeline.RenderSpec{{
			Name:     "logproxy-config",
			Template: logproxyConfTemplate,
			Vars:     cfg.Vars(),
			Path:     filepath.Join(cfg.LogproxyDir, "conf", "conf.json"),
		}},
		Steps: []pipeline.Step{
			{
				Name: "run-logproxy-deploy",
				Spec: execute.Spec{
					Program: filepath.Join(cfg.LogproxyDir, "run.sh"),
					Args:    []string{"start"},
					Dir:     cfg.LogproxyDir,
					Timeout: cfg.CommandTimeout,
				},
			},
			b.sql("register-binlog", cfg.ProxyPort, "root", cfg.RootPassword,
				fmt.Sprintf("CREATE BINLOG IF NOT EXISTS FOR TENANT `%s`.`%s` WITH CLUSTER URL '%s:%d'",
					cfg.ClusterName, cfg.TenantName, cfg.Host, cfg.ClientPort)),
		},
	}
}

// optionalGrants applies convenience grants for the tenant user. Purely
// best-effort.
func (b *builder) optionalGrants(ordinal int) pipeline.Stage {
	cfg := b.cfg
	tenantRoot := fmt.Sprintf("root@%s", cfg.TenantName)
	return pipeline.Stage{
		Name:     "grant-optional-user",
		Ordinal:  ordinal,
		Critical: false,
		Steps: []pipeline.Step{
			b.sql("grant-all", cfg.ClientPort, tenantRoot, cfg.TenantPassword,
				"GRANT ALL PRIVILEGES ON *.* TO 'root' WITH GRANT OPTION"),
		},
	}
}

// sql builds a step that drives one statement through the client binary.
// The core treats the statement as an opaque command with an exit code
// and captured output.
func (b *builder) sql(name string, port int, user, password, statement string) pipeline.Step {
	cfg := b.cfg
	args := []string{
		"-h", cfg.Host,
		"-P", fmt.Sprintf("%d", port),
		"-u", user,
		"--connect-timeout=5",
		"-N", "-B",
		"-e", statement,
	}
	if password != "" {
		args = append(args, "-p"+password)
	}
	return pipeline.Step{
		Name: name,
		Spec: execute.Spec{
			Program: cfg.MySQLBin,
			Args:    args,
			Timeout: cfg.CommandTimeout,
		},
	}
}
