package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrExtractionEmpty     = errors.New("text extraction yielded no pages or data")
	ErrAlreadyComplete     = errors.New("document is already complete")
	ErrNotComplete         = errors.New("document analysis is not complete")
	ErrNoStorageLocation   = errors.New("document has no storage location")
	ErrDeletionFailed      = errors.New("document record could not be deleted")
)
