package errors

import "net/http"

// Error codes for the different modules
const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrConflict        = 1003
	ErrTooManyRequests = 1004
	ErrBadRequest      = 1005
	ErrServiceUnavail  = 1006
	ErrDatabase        = 1007

	// Search errors (2000-2999)
	ErrSearchEmptyQuery   = 2000
	ErrSearchNoResults    = 2001
	ErrSearchStoreFailure = 2002

	// Provider errors (3000-3999)
	ErrProviderUnavailable = 3000
	ErrProviderRateLimited = 3001
	ErrProviderBadPayload  = 3002

	// Library errors (4000-4999)
	ErrLibraryImageNotFound = 4000
	ErrLibraryDuplicate     = 4001
	ErrLibraryBadCategory   = 4002
)

var messages = map[int]string{
	Success: "success",

	ErrInternalServer:  "internal server error",
	ErrInvalidParams:   "invalid parameters",
	ErrNotFound:        "resource not found",
	ErrConflict:        "resource conflict",
	ErrTooManyRequests: "too many requests",
	ErrBadRequest:      "bad request",
	ErrServiceUnavail:  "service unavailable",
	ErrDatabase:        "database error",

	ErrSearchEmptyQuery:   "no query provided",
	ErrSearchNoResults:    "no images found for your search",
	ErrSearchStoreFailure: "search store failure",

	ErrProviderUnavailable: "image provider unavailable",
	ErrProviderRateLimited: "image provider rate limited",
	ErrProviderBadPayload:  "image provider returned malformed payload",

	ErrLibraryImageNotFound: "library image not found",
	ErrLibraryDuplicate:     "image already in library",
	ErrLibraryBadCategory:   "unknown library category",
}

var httpStatus = map[int]int{
	Success: http.StatusOK,

	ErrInternalServer:  http.StatusInternalServerError,
	ErrInvalidParams:   http.StatusBadRequest,
	ErrNotFound:        http.StatusNotFound,
	ErrConflict:        http.StatusConflict,
	ErrTooManyRequests: http.StatusTooManyRequests,
	ErrBadRequest:      http.StatusBadRequest,
	ErrServiceUnavail:  http.StatusServiceUnavailable,
	ErrDatabase:        http.StatusInternalServerError,

	ErrSearchEmptyQuery:   http.StatusBadRequest,
	ErrSearchNoResults:    http.StatusOK,
	ErrSearchStoreFailure: http.StatusInternalServerError,

	ErrProviderUnavailable: http.StatusServiceUnavailable,
	ErrProviderRateLimited: http.StatusTooManyRequests,
	ErrProviderBadPayload:  http.StatusBadGateway,

	ErrLibraryImageNotFound: http.StatusNotFound,
	ErrLibraryDuplicate:     http.StatusConflict,
	ErrLibraryBadCategory:   http.StatusBadRequest,
}

// GetMessage returns the human-readable message for an error code
func GetMessage(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "unknown error"
}

// GetHTTPStatus returns the HTTP status code mapped to an error code
func GetHTTPStatus(code int) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
