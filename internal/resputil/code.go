package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102

	// Login
	InvalidCredentials ErrorCode = 40103
	EmailTaken         ErrorCode = 40104
	ResetTokenInvalid  ErrorCode = 40105

	// User is not allowed to access the resource
	UserNotAllowed ErrorCode = 40301

	UserNotFound    ErrorCode = 40401
	ProjectNotFound ErrorCode = 40402
	RequestNotFound ErrorCode = 40403

	// Supervision workflow
	CapacityExceeded   ErrorCode = 40901
	DuplicatePending   ErrorCode = 40902
	AlreadyProcessed   ErrorCode = 40903
	AlreadyAssigned    ErrorCode = 40904
	ProjectNotApproved ErrorCode = 40905
	ProposalPending    ErrorCode = 40906

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
