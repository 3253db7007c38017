package listing

import "errors"

var (
	ErrNotFound         = errors.New("listing not found")
	ErrForbidden        = errors.New("listing belongs to another user")
	ErrAlreadyPublished = errors.New("listing already published")
	ErrImageRequired    = errors.New("listing has no image")
	ErrStorage          = errors.New("image storage failure")
)
