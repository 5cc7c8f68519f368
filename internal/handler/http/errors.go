package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/graphql"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// writeError maps backend GraphQL errors to 502 with the backend's first
// message; everything else goes through httputil.WriteError.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var gqlErrs graphql.Errors
	if errors.As(err, &gqlErrs) {
		err = apperrors.Upstream(http.StatusOK, gqlErrs.First())
	}
	httputil.WriteError(w, r, err, logger)
}
