// Package config handles configuration loading for santecall-gateway.
//
// # Overview
//
// Configuration is assembled in three layers, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. An optional YAML file, with ${VAR_NAME} expansion
//  3. Environment variables
//
// A deployment that only sets SANTECALL_TOKEN needs no file at all.
//
// # Configuration File
//
//	server:
//	  host: "0.0.0.0"
//	  port: 5002
//	  shutdown_timeout: "10s"
//
//	santecall:
//	  api_url: "https://hds.santecall.ai/public/lookup"
//	  token: "${SANTECALL_TOKEN}"
//	  default_volubile_id: "cabinet-42"
//	  timeout: "30s"                # or a bare number of seconds
//
//	auth:
//	  jwt_secret: "${AUTH_JWT_SECRET}"  # empty leaves /mcp open
//
//	audit:
//	  path: "/var/lib/santecall-gateway/audit.db"  # empty disables auditing
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
//	cors:
//	  allowed_origins: ["*"]
//
// # Environment Variables
//
//	SANTECALL_API_URL     santecall.api_url
//	SANTECALL_TOKEN       santecall.token
//	DEFAULT_VOLUBILE_ID   santecall.default_volubile_id
//	SANTECALL_TIMEOUT     santecall.timeout
//	HOST, PORT            server.host, server.port
//	SHUTDOWN_TIMEOUT      server.shutdown_timeout
//	FLASK_DEBUG, DEBUG    logging.debug (either one true enables it)
//	LOG_LEVEL, LOG_FORMAT logging.level, logging.format
//	CORS_ALLOWED_ORIGINS  cors.allowed_origins (comma separated)
//	METRICS_ENABLED       metrics.enabled
//	METRICS_PATH          metrics.path
//	AUTH_JWT_SECRET       auth.jwt_secret
//	AUDIT_DB_PATH         audit.path
//
// # Validation
//
// Load reports every invalid field at once: port range, API URL scheme and
// host, positive timeouts, JWT secret length, log level and format, and a
// metrics path that does not collide with a gateway route.
package config
