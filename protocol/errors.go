// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import "errors"

// Errors returned while validating and decoding packets. They are wrapped
// with the offending frame or payload.
var (
	ErrPacketInvalid  = errors.New("invalid packet")
	ErrCorruptAddr    = errors.New("invalid address set")
	ErrCorruptPayload = errors.New("invalid payload")
	ErrCorruptState   = errors.New("inconsistent state")
	ErrNotImplemented = errors.New("not implemented")
)
