package service

import "errors"

var (
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrOrgRequired            = errors.New("organization ID is required")
	ErrNotSignedIn            = errors.New("you must be signed in")
	ErrInvalidStatus          = errors.New("invalid revision status")
	ErrOrganizationUnresolved = errors.New("could not determine organization")
	ErrDocumentNotFound       = errors.New("document not found")
)
