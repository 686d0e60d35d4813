package sdo

import "errors"

// ErrShortCommand is returned when a buffer is too short to hold a
// complete sequence or command layer header.
var ErrShortCommand = errors.New("sdo: frame buffer too short")
