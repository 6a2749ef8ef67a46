package params

import "errors"

// CodeUnsupported tags rich errors for rejected parameter combinations.
const CodeUnsupported = "FENC_UNSUPPORTED_COMBINATION"

// ErrUnsupportedCombination is returned when a parameter tuple is absent from
// the compatibility tables.
var ErrUnsupportedCombination = errors.New("unsupported parameter combination")
