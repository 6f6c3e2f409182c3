package config

const (
	EnvPrefix = "paypadi"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "PAYPADI_APP_ENV"
	EnvPort   = "PAYPADI_APP_PORT"

	EnvDBDSN  = "PAYPADI_DB_DSN"
	EnvDBHost = "PAYPADI_DB_HOST"
	EnvDBUser = "PAYPADI_DB_USER"
	EnvDBName = "PAYPADI_DB_NAME"

	EnvRedisURL = "PAYPADI_REDIS_URL"

	EnvJWTSecret = "PAYPADI_JWT_SECRET"
	EnvJWTIssuer = "PAYPADI_JWT_ISSUER"

	EnvPaystackSecretKey = "PAYPADI_PAYSTACK_SECRET_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
