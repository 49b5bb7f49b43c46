package httpadapter

import (
	"net/http"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrStoreUnavailable),
		domain.IsKind(err, domain.ErrProviderUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorKindLabel reduces a provider failure to its taxonomy label for the
// per-provider answers map.
func errorKindLabel(err error) string {
	if kind := domain.Kind(err); kind != nil {
		return kind.Error()
	}
	return "unknown error"
}
