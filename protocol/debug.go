// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

// debugFlags turns on diagnostics of payload decoding while working on the
// decoders. Releases are built with none set.
const debugFlags debugFlag = 0

type debugFlag uint8

const (
	// debugRawPayload keeps the raw payload of decoded messages under
	// "_payload".
	debugRawPayload debugFlag = 1 << iota
	// debugPanics lets decoder panics through instead of reporting a
	// corrupt payload.
	debugPanics
)
