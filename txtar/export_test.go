// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package txtar

// ErrUnsafePath exposes errUnsafePath to the external test package.
var ErrUnsafePath = errUnsafePath
