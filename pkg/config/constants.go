package config

const (
	// EnvPrefix is intentionally empty: every field names its env var in full.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GRAMSEVA_DB_DSN"
	EnvDBHost = "GRAMSEVA_DB_HOST"
	EnvDBUser = "GRAMSEVA_DB_USER"
	EnvDBName = "GRAMSEVA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
