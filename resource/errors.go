package resource

import "errors"

var ErrInvalidDeclaration = errors.New("invalid resource declaration")
var ErrNotRegistered = errors.New("resource type not registered")
var ErrUnknownAttribute = errors.New("unknown resource attribute")
var ErrWrongEntity = errors.New("entity does not belong to this resource type")
var ErrUpdateConflict = errors.New("conflicting update data")
