package constants

const (
	APIPrefix = "/v1"

	// env var holding the frontend dev-server port, CORS is opened for
	// it in debug mode
	FrontendPortEnv = "MENTOR_FE_PORT"
)
