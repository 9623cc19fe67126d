package bringup

// Config templates for the downstream services. Placeholders use the
// upper-snake names from config.Vars.

// observerConfTemplate is the startup option string consumed by the
// storage node.
const observerConfTemplate = `memory_limit=${MEMORY_LIMIT},datafile_size=${DATAFILE_SIZE},log_disk_size=${LOG_DISK_SIZE},cpu_count=${CPU_COUNT},enable_syslog_recycle=True,max_syslog_file_count=4
`

// obproxyConfTemplate is the proxy startup configuration.
const obproxyConfTemplate = `listen_port=${PROXY_PORT}
rootservice_list=${HOST}:${RPC_PORT}:${MYSQL_PORT}
cluster_name=${CLUSTER_NAME}
observer_sys_password=${PROXYRO_PASSWORD}
enable_cluster_checkout=false
log_dir_size_threshold=1G
`

// logproxyConfTemplate is the conf.json consumed by the log-replication
// service at its own startup.
const logproxyConfTemplate = `{
  "ob_sys_username": "proxyro",
  "ob_sys_password": "${PROXYRO_PASSWORD}",
  "ob_cluster_url": "${HOST}:${MYSQL_PORT}",
  "binlog_log_bin_basename": "${LOGPROXY_DIR}/run",
  "service_port": 2983,
  "cluster": "${CLUSTER_NAME}"
}
`
