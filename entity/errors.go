package entity

import "errors"

var ErrNotFound = errors.New("entity not found")
var ErrDuplicate = errors.New("duplicate entity")
var ErrInvalidEntity = errors.New("invalid entity for aggregate")
