package errors

// Machine-readable error codes used across the API boundary.
const (
	CodeEmptyInput      = "EMPTY_INPUT"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeParseFailed     = "PARSE_FAILED"
	CodeInternal        = "INTERNAL_ERROR"
)
