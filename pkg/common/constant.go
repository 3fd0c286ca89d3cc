package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeySosDBType string = "SOS_DB_TYPE"
	EnvKeySosDbPath string = "SOS_DB_PATH"

	EnvKeySosHttpHostPort    string = "SOS_HTTP_HOST_PORT"
	EnvKeySosGrpcHostPort    string = "SOS_GRPC_HOST_PORT"
	EnvKeySosDocstoreAddr    string = "SOS_DOCSTORE_ADDR"
	EnvKeySosDocstoreBackend string = "SOS_DOCSTORE_BACKEND"
	EnvKeySosRedisAddr       string = "SOS_REDIS_ADDR"
	EnvKeySosAmqpURL         string = "SOS_AMQP_URL"
	EnvKeySosGeocoderURL     string = "SOS_GEOCODER_URL"

	EnvKeySosUserID   string = "SOS_USER_ID"
	EnvKeySosUserName string = "SOS_USER_NAME"

	EnvKeySosCountdownSeconds     string = "SOS_COUNTDOWN_SECONDS"
	EnvKeySosLocationIntervalMs   string = "SOS_LOCATION_INTERVAL_MS"
	EnvKeySosLocationFastestMs    string = "SOS_LOCATION_FASTEST_MS"
	EnvKeySosLocationDisplacement string = "SOS_LOCATION_DISPLACEMENT_M"
	EnvKeySosLocationMaxAgeMs     string = "SOS_LOCATION_MAX_AGE_MS"
	EnvKeySosRetentionDays        string = "SOS_RETENTION_DAYS"
	EnvKeySosRetentionSchedule    string = "SOS_RETENTION_SCHEDULE"
	EnvKeySosEmergencyNumber      string = "SOS_EMERGENCY_NUMBER"
	EnvKeySosMaxNotified          string = "SOS_MAX_NOTIFIED"

	EnvKeySosDefaultRate  string = "SOS_DEFAULT_RATE"
	EnvKeySosDefaultBurst string = "SOS_DEFAULT_BURST"

	LoggerNameSosCore       string = "sos_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameDocstore      string = "docstore"

	LoggerFieldSosCategory       string = "category"
	LoggerCategorySosContact     string = "contact"
	LoggerCategorySosEvent       string = "event"
	LoggerCategorySosHistory     string = "history"
	LoggerCategorySosLocation    string = "location"
	LoggerCategorySosRemote      string = "remote"
	LoggerCategorySosNotify      string = "notify"
	LoggerCategorySosCoordinator string = "coordinator"
	LoggerCategorySosRetention   string = "retention"
	LoggerCategorySosPush        string = "push"

	CollectionUsers           string = "users"
	CollectionSosEvents       string = "sos_events"
	CollectionCommunityAlerts string = "community_alerts"
	CollectionLocations       string = "locations"
	CollectionInvitations     string = "invitations"

	SchemaVersion int = 1
)
