// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import "errors"

// ErrValidation is returned by Map when no usable asset data was supplied.
var ErrValidation = errors.New("asset: invalid asset data")
