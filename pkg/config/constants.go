package config

const (
	EnvPrefix = "KIPSUNYA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "KIPSUNYA_DB_DSN"
	EnvDBHost = "KIPSUNYA_DB_HOST"
	EnvDBUser = "KIPSUNYA_DB_USER"
	EnvDBName = "KIPSUNYA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
