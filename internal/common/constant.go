package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests
// and as gRPC metadata.
const AuthorizationHeaderName = "authorization"

// VerifyIDParam is the query parameter holding the opaque record id in a
// canonical verification URL.
const VerifyIDParam = "id"
