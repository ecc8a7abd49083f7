package errors

// Code represents an error code
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"                 // Unknown error occurred
	CodeInternalError         Code = "INTERNAL_ERROR"          // Internal system error
	CodeInvalidParameter      Code = "INVALID_PARAMETER"       // Invalid parameter provided
	CodeMissingParameter      Code = "MISSING_PARAMETER"       // Required parameter missing
	CodeTypeConversionFailed  Code = "TYPE_CONVERSION_FAILED"  // Response could not be decoded
	CodeNetworkTimeout        Code = "NETWORK_TIMEOUT"         // Network operation timed out
	CodeNetworkError          Code = "NETWORK_ERROR"           // Network error
	CodeIoError               Code = "IO_ERROR"                // Input/output operation failed
	CodeNotFound              Code = "NOT_FOUND"               // Not found
	CodeAlreadyExists         Code = "ALREADY_EXISTS"          // Already exists
	CodeConfigurationInvalid  Code = "CONFIGURATION_INVALID"   // Configuration invalid
	CodeOperationFailed       Code = "OPERATION_FAILED"        // Remote API refused the call
	CodeRateLimited           Code = "RATE_LIMITED"            // Remote API asked us to slow down
	CodeCommandAlreadyExists  Code = "COMMAND_ALREADY_EXISTS"  // Bot command registered twice
	CodeCommandExecutionError Code = "COMMAND_EXECUTION_ERROR" // Bot command handler failed
)
