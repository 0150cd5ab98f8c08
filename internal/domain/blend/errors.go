package blend

import "errors"

// ErrAlphaOutOfRange is returned when alpha is not within [0,1].
var ErrAlphaOutOfRange = errors.New("alpha out of range")
