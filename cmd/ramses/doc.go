// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Ramses decodes RAMSES-II packets, the radio protocol of Honeywell evohome
heating systems and of many ventilation units, and talks to their devices
through an HGI80 or an evofw3 radio.

Usage:

	$ ramses [flags] parse [file]
	$ ramses [flags] monitor port
	$ ramses [flags] listen port
	$ ramses [flags] execute port
	$ ramses [flags] remote url

parse reads a packet log from file, or from stdin, and prints its messages.
listen reads packets from the radio at port without sending anything.
monitor also discovers the systems it hears, polling their controllers.
execute runs one of the scripts below, then exits.

port is a serial device, like /dev/ttyUSB0, or tcp://host:port for a radio
shared over the network (ser2net).

Scripts of execute:

	-exec-cmd 'RQ 01:145038 1F09 00'  send a command and print the response
	-get-faults 01:145038             read the fault log of a controller
	-get-schedule 01:145038,02        read the schedule of a zone (or HW)
	-scan-disc 01:145038              ask devices what discovery would
	-scan-full 01:145038              ask devices for every code
	-poll 01:145038                   poll devices until interrupted

Messages are printed as they arrive, one per line, truncated to the width
of the terminal unless -long is given. With -show-schema and the other
-show flags, snapshots of what was learnt are printed as JSON at the end.

The configuration file, given by -config, is YAML:

	serial_port: /dev/ttyUSB0
	config:
	  enforce_known_list: true
	known_list:
	  01:145038: {class: CTL, alias: Controller}
	  18:000730: {class: HGI}
	packet_log:
	  file_name: packet.log
	  rotate_backups: 7
	01:145038:
	  zones:
	    "00": {class: RAD, sensor: 34:092243}

With -http, the state is also served over HTTP: see package
go.astrophena.name/ramses/web/api for the routes. Under systemd, -http
sd-socket:name uses the socket named name. The service reports its status
through sd_notify.

remote talks to such a ramses instead of a radio. It sends the command of
-exec-cmd and prints the snapshots asked for with the -show flags:

	$ ramses -exec-cmd 'RQ 01:145038 1F09 00' remote http://localhost:8080
*/
package main

import (
	_ "embed"

	"go.astrophena.name/ramses/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
