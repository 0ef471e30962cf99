package config

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "PUMPLINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PUMPLINK_DB_DSN"
	EnvDBHost = "PUMPLINK_DB_HOST"
	EnvDBUser = "PUMPLINK_DB_USER"
	EnvDBName = "PUMPLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
