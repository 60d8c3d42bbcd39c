// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package packetlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/testutil"
)

var testDtm = time.Date(2021, 6, 15, 10, 30, 0, 0, time.Local)

func mustPacket(t *testing.T, line string) *protocol.Packet {
	t.Helper()
	pkt, err := protocol.ParseLogLine(line)
	if err != nil {
		t.Fatal(err)
	}
	return pkt
}

func TestHandler(t *testing.T) {
	cases := map[string]struct {
		log  func(l *slog.Logger)
		want string
	}{
		"packet": {
			log: func(l *slog.Logger) {
				Packet(context.Background(), l, mustPacket(t, "2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0"))
			},
			want: "2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0\n",
		},
		"comment": {
			log: func(l *slog.Logger) {
				Packet(context.Background(), l, mustPacket(t, "2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0 # sync"))
			},
			want: "2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0 # sync\n",
		},
		"invalid": {
			log: func(l *slog.Logger) {
				Invalid(context.Background(), l, testDtm, "045 garbage", errors.New("bad frame"))
			},
			want: "2021-06-15T10:30:00.000000 045 garbage * bad frame\n",
		},
		"message": {
			log: func(l *slog.Logger) {
				l.With(slog.Time(KeyDtm, testDtm), slog.String(KeyRSSI, "000")).Info("sending", slog.String(KeyFrame, "RQ --- 18:000730 01:145038 --:------ 1F09 001 00"))
			},
			want: "2021-06-15T10:30:00.000000 000 RQ --- 18:000730 01:145038 --:------ 1F09 001 00 < sending\n",
		},
		"debug is dropped": {
			log: func(l *slog.Logger) {
				l.Debug("nothing", slog.String(KeyFrame, "x"))
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.log(slog.New(NewHandler(&buf)))
			testutil.AssertEqual(t, buf.String(), tc.want)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		"2021-06-15T10:30:01.000000 000 RQ --- 18:000730 01:145038 --:------ 0004 002 0500",
		"2021-06-15T10:30:01.100000 045 RP --- 01:145038 18:000730 --:------ 2309 003 0107D0",
	}
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf))
	for _, line := range lines {
		Packet(context.Background(), l, mustPacket(t, line))
	}
	testutil.AssertEqual(t, buf.String(), strings.Join(lines, "\n")+"\n")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "packet.log")
	l, err := Open(context.Background(), config.PacketLog{FileName: name, RotateBackups: 3})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, l.lj.MaxBackups, 3)

	pkt := mustPacket(t, "2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0")
	Packet(context.Background(), l.Logger, pkt)
	if err := l.Rotate(); err != nil {
		t.Fatal(err)
	}
	Packet(context.Background(), l.Logger, pkt)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(b), pkt.LogLine()+"\n")
	matches, err := filepath.Glob(filepath.Join(dir, "packet-*.log"))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(matches), 1)
}

func TestOpenRotateBytes(t *testing.T) {
	pkt := mustPacket(t, "2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0")
	line := int64(len(pkt.LogLine()) + 1)

	cases := map[string]struct {
		in          config.PacketLog
		existing    int // lines already in the file
		write       int
		wantLines   int // in the current file
		wantRotated bool
	}{
		"under the limit": {
			in:        config.PacketLog{RotateBytes: 2*line + 1},
			write:     2,
			wantLines: 2,
		},
		"at the limit": {
			in:          config.PacketLog{RotateBytes: 2 * line},
			write:       2,
			wantLines:   1,
			wantRotated: true,
		},
		"below a megabyte": {
			in:          config.PacketLog{RotateBytes: 100},
			write:       2,
			wantLines:   1,
			wantRotated: true,
		},
		"existing file": {
			in:          config.PacketLog{RotateBytes: 2*line + 1},
			existing:    1,
			write:       2,
			wantLines:   1,
			wantRotated: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tc.in.FileName = filepath.Join(dir, "packet.log")
			if tc.existing > 0 {
				if err := os.WriteFile(tc.in.FileName, []byte(strings.Repeat(pkt.LogLine()+"\n", tc.existing)), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			l, err := Open(context.Background(), tc.in)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, l.lj.MaxBackups, 2)
			for range tc.write {
				Packet(context.Background(), l.Logger, pkt)
			}
			if err := l.Close(); err != nil {
				t.Fatal(err)
			}

			b, err := os.ReadFile(tc.in.FileName)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, strings.Count(string(b), "\n"), tc.wantLines)
			matches, err := filepath.Glob(filepath.Join(dir, "packet-*.log"))
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, len(matches) == 1, tc.wantRotated)
		})
	}
}

func TestRotateError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := Open(context.Background(), config.PacketLog{FileName: filepath.Join(dir, "packet.log")})
	if err != nil {
		t.Fatal(err)
	}
	Packet(context.Background(), l.Logger, mustPacket(t, "2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0"))
	// The new file can't be created where a directory is expected.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	lg := logger.New(nil)
	lg.Attach(slog.NewTextHandler(&buf, nil))
	l.rotate(logger.Put(context.Background(), lg))
	l.Close()

	testutil.AssertContains(t, buf.String(), "rotating packet log")
	testutil.AssertContains(t, buf.String(), "packet.log")
}

func TestOpenNoName(t *testing.T) {
	if _, err := Open(context.Background(), config.PacketLog{}); err == nil {
		t.Fatal("want error")
	}
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2021, 12, 31, 23, 59, 0, 0, time.UTC)
	testutil.AssertEqual(t, nextMidnight(now), time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
}
