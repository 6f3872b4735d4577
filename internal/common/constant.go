package common

// SessionTokenHeaderName is the gRPC metadata key used to carry the session
// token issued after a successful OTP verification.
const SessionTokenHeaderName = "session_token"

// AdminTokenHeaderName is the gRPC metadata key carrying the operator token
// for the administrative RPCs.
const AdminTokenHeaderName = "admin_token"

// RequestIDHeaderName is the gRPC metadata key for request correlation ids.
const RequestIDHeaderName = "x-request-id"
