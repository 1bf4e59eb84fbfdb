package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "SUPPLYLEDGER_APP_ENV"
	EnvLogLevel = "SUPPLYLEDGER_LOG_LEVEL"

	EnvDBDSN      = "SUPPLYLEDGER_DB_DSN"
	EnvDBHost     = "SUPPLYLEDGER_DB_HOST"
	EnvDBPort     = "SUPPLYLEDGER_DB_PORT"
	EnvDBUser     = "SUPPLYLEDGER_DB_USER"
	EnvDBPassword = "SUPPLYLEDGER_DB_PASSWORD"
	EnvDBName     = "SUPPLYLEDGER_DB_NAME"
	EnvDBLockWait = "SUPPLYLEDGER_DB_LOCK_TIMEOUT"

	EnvRedisURL = "SUPPLYLEDGER_REDIS_URL"

	EnvDefaultPaymentTermsDays = "SUPPLYLEDGER_DEFAULT_PAYMENT_TERMS_DAYS"
	EnvPOReferencePrefix       = "SUPPLYLEDGER_PO_REFERENCE_PREFIX"

	EnvCronInterval = "SUPPLYLEDGER_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
