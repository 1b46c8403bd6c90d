package errors

import "net/http"

var (
	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidPolygon = New(
		"INVALID_POLYGON",
		"Polygon must have at least 3 distinct points",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrOverlapDetected = New(
		"OVERLAP_DETECTED",
		"Boundary overlaps with an existing territory",
		http.StatusConflict,
	)

	ErrGeometryUnavailable = New(
		"GEOMETRY_UNAVAILABLE",
		"Geometry containment engine is not available",
		http.StatusServiceUnavailable,
	)

	ErrProviderAuth = New(
		"PROVIDER_AUTH_ERROR",
		"Geodata provider rejected credentials",
		http.StatusBadGateway,
	)

	ErrProviderTimeout = New(
		"PROVIDER_TIMEOUT",
		"Geodata provider timed out",
		http.StatusGatewayTimeout,
	)

	ErrProviderError = New(
		"PROVIDER_ERROR",
		"Geodata provider request failed",
		http.StatusBadGateway,
	)

	ErrBackendUnreachable = New(
		"BACKEND_UNREACHABLE",
		"Territory backend is unreachable",
		http.StatusBadGateway,
	)

	ErrLocationNotFound = New(
		"LOCATION_NOT_FOUND",
		"Location not found",
		http.StatusNotFound,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
