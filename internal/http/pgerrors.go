package httpserver

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGErrorMessage maps common Postgres errors to user-friendly HTTP status + message.
// If err is not a pg error, returns 500 with the provided fallback message.
func PGErrorMessage(err error, fallback string) (int, string) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		// Unknown error type; hide details
		return http.StatusInternalServerError, fallback
	}

	// Default mapping
	status := http.StatusBadRequest
	msg := fallback

	switch pgErr.Code {
	case "23505": // unique_violation
		status = http.StatusConflict
		switch pgErr.ConstraintName {
		case "accounts_email_key":
			msg = "An account with this email already exists."
		case "accounts_username_key", "local_credentials_username_key":
			msg = "This username is already taken."
		default:
			msg = "Duplicate value violates a unique constraint."
		}
	case "23503": // foreign_key_violation
		msg = "Referenced record not found."
	case "23502": // not_null_violation
		msg = "Missing required field."
	case "22P02": // invalid_text_representation (e.g., UUID/boolean)
		msg = "Invalid value format."
	case "22001": // string_data_right_truncation
		msg = "Value is too long."
	default:
		// For any other PG error, avoid leaking internals
	}

	return status, msg
}
