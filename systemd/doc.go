// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package systemd tells systemd how the gateway is doing, over the sd-notify
protocol, and hands the HTTP server its socket under socket activation.

Outside Linux, or when the service isn't started by systemd, notifications
are dropped.
*/
package systemd
