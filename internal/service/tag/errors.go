package tag

import "errors"

var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrTagExists       = errors.New("tag already exists")
	ErrUnknownSlug     = errors.New("unknown tag slug")
	ErrInvalidCategory = errors.New("invalid tag category")
)
