package errors

import "errors"

var (
	ErrNotFound = errors.New("resource could not be found")

	// Credential store
	ErrEmailTaken         = errors.New("email address is already in use")
	ErrInvalidCredentials = errors.New("email address or password is incorrect")
	ErrNotVerified        = errors.New("account has not been verified")
	ErrInvalidCode        = errors.New("code is incorrect")
	ErrCodeExpired        = errors.New("code has expired")

	// Import
	ErrUnparsableExport = errors.New("bookmark export could not be parsed")

	// Classification
	ErrMissingAPIKey = errors.New("classification api key is not configured")

	// Backup
	ErrSnapshotCorrupt = errors.New("backup snapshot could not be decrypted")
)

func New(text string) error {
	return errors.New(text)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
