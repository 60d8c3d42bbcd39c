// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/testutil"
	"go.astrophena.name/ramses/transport"
)

var testTime = time.Date(2021, 6, 15, 10, 30, 0, 0, time.Local)

// fakeTransport answers commands from a table. Commands are keyed by their
// short form, e.g. "RQ 01:145038 1F09 00".
type fakeTransport struct {
	mu      sync.Mutex
	sent    []string
	replies map[string]func(cmd *protocol.Command) string
	err     error
}

func (f *fakeTransport) Run(ctx context.Context, _ func(context.Context, *protocol.Packet)) error {
	<-ctx.Done()
	return nil
}

func shortForm(cmd *protocol.Command) string {
	return fmt.Sprintf("%s %s %s %s", cmd.Verb.Short(), cmd.Dst, cmd.Code, cmd.Payload)
}

func (f *fakeTransport) Send(_ context.Context, cmd *protocol.Command) (*protocol.Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd.Verb.Short()+" "+string(cmd.Code))
	if f.err != nil {
		return nil, f.err
	}
	if cmd.Verb == protocol.I {
		return &protocol.Packet{Frame: cmd.Frame, Dtm: testTime, RSSI: "000"}, nil
	}
	reply, ok := f.replies[shortForm(cmd)]
	if !ok {
		reply, ok = f.replies[string(cmd.Code)]
	}
	if !ok {
		return nil, transport.ErrExpired
	}
	return protocol.ParsePacket("045 "+reply(cmd), testTime)
}

func (f *fakeTransport) sentCmds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

func static(frame string) func(*protocol.Command) string {
	return func(*protocol.Command) string { return frame }
}

func newTestGateway(tr Transport) *Gateway {
	return New(testConfig(), tr, Options{Now: func() time.Time { return testTime }})
}

func TestExecCmd(t *testing.T) {
	tr := &fakeTransport{replies: map[string]func(*protocol.Command) string{
		"RQ 01:145038 1F09 00": static("RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5"),
	}}
	g := newTestGateway(tr)

	msg, err := g.ExecCmd(context.Background(), "RQ 01:145038 1F09 00")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, msg.Verb, protocol.RP)
	testutil.AssertEqual(t, msg.Code, protocol.Code("1F09"))
	// The script is marked by puzzle packets.
	testutil.AssertEqual(t, tr.sentCmds(), []string{"I 7FFF", "RQ 1F09", "I 7FFF"})

	_, err = g.ExecCmd(context.Background(), "XX 01:145038 1F09 00")
	testutil.AssertErrorIs(t, err, protocol.ErrPacketInvalid)
}

func TestScriptSendingDisabled(t *testing.T) {
	g := newTestGateway(&fakeTransport{err: ErrSendingDisabled})
	_, err := g.ExecCmd(context.Background(), "RQ 01:145038 1F09 00")
	testutil.AssertErrorIs(t, err, ErrSendingDisabled)
}

func TestGetFaults(t *testing.T) {
	tr := &fakeTransport{replies: map[string]func(*protocol.Command) string{
		"RQ 01:145038 0418 000000": static("RP --- 01:145038 18:000730 --:------ 0418 022 000000B0040104000000679553D680FFFF700211E240"),
		"RQ 01:145038 0418 000001": static("RP --- 01:145038 18:000730 --:------ 0418 022 000001B0000000000000000000007FFFFF7000000000"),
	}}
	g := newTestGateway(tr)

	faults, err := g.GetFaults(context.Background(), "01:145038", 10)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(faults), 1)
	testutil.AssertEqual(t, faults[0]["log_idx"], "00")
	testutil.AssertEqual(t, faults[0]["device_id"], "04:123456")
	testutil.AssertEqual(t, faults[0]["fault_type"], "battery_low")

	// A log entry that doesn't arrive fails the script.
	tr.replies = nil
	_, err = g.GetFaults(context.Background(), "01:145038", 10)
	testutil.AssertErrorIs(t, err, transport.ErrExpired)
}

// compressSchedule encodes a schedule of one switchpoint a day, as a
// controller stores it.
func compressSchedule(t *testing.T, zone byte) string {
	t.Helper()
	var raw bytes.Buffer
	for day := range 7 {
		rec := make([]byte, 20)
		rec[0] = zone
		rec[8] = byte(day)
		binary.LittleEndian.PutUint16(rec[12:14], uint16(6*60+day))
		binary.LittleEndian.PutUint16(rec[16:18], 2000)
		binary.LittleEndian.PutUint16(rec[18:20], 2000)
		raw.Write(rec)
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return strings.ToUpper(hex.EncodeToString(buf.Bytes()))
}

// scheduleReplies answers RQ 0404 with the fragments of data.
func scheduleReplies(t *testing.T, data string) func(*protocol.Command) string {
	const size = 82
	var chunks []string
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	chunks = append(chunks, data)
	return func(cmd *protocol.Command) string {
		var frag int
		if _, err := fmt.Sscanf(cmd.Payload[10:12], "%02X", &frag); err != nil || frag < 1 || frag > len(chunks) {
			t.Errorf("bad fragment request %q", cmd.Payload)
			frag = 1
		}
		chunk := chunks[frag-1]
		payload := fmt.Sprintf("%s0008%02X%02X%02X%s", cmd.Payload[:4], len(chunk)/2, frag, len(chunks), chunk)
		f, err := protocol.FrameFromAttrs(protocol.RP, cmd.Dst, protocol.HGIDevice, "0404", payload)
		if err != nil {
			t.Error(err)
			return ""
		}
		return f.String()
	}
}

func TestGetSchedule(t *testing.T) {
	tr := &fakeTransport{replies: map[string]func(*protocol.Command) string{
		"0404": scheduleReplies(t, compressSchedule(t, 2)),
	}}
	g := newTestGateway(tr)

	s, err := g.GetSchedule(context.Background(), "01:145038", "02")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, s.ZoneIdx, "02")
	testutil.AssertEqual(t, len(s.Days), 7)
	testutil.AssertEqual(t, s.Days[3].Switchpoints[0].TimeOfDay, "06:03")
	testutil.AssertEqual(t, *s.Days[3].Switchpoints[0].HeatSetpoint, 20.0)

	_, err = g.GetSchedule(context.Background(), "01:145038", "zz")
	if err == nil {
		t.Error("want an error for a bad zone")
	}
}

func TestScanFullCmds(t *testing.T) {
	cmds := scanFullCmds("01:145038")
	first := cmds[0]
	testutil.AssertEqual(t, shortForm(first), "RQ 01:145038 0016 0000")
	testutil.AssertEqual(t, first.QoS.Retries, 5)

	var forms []string
	for _, cmd := range cmds[1:] {
		testutil.AssertEqual(t, cmd.Verb, protocol.RQ)
		if cmd.QoS.Retries > 1 {
			t.Errorf("%s: %d retries", cmd, cmd.QoS.Retries)
		}
		forms = append(forms, shortForm(cmd))
	}
	for _, want := range []string{
		"RQ 01:145038 0005 0008",
		"RQ 01:145038 000C 0F00",
		"RQ 01:145038 1100 FC",
		"RQ 01:145038 10E0 00",
	} {
		if !slices.Contains(forms, want) {
			t.Errorf("missing %q", want)
		}
	}
	for _, form := range forms {
		if strings.Contains(form, " 7FFF ") || strings.Contains(form, " 0016 ") {
			t.Errorf("unexpected %q", form)
		}
	}
}

func TestScanDisc(t *testing.T) {
	tr := &fakeTransport{replies: map[string]func(*protocol.Command) string{
		"RQ 01:145038 0016 00FF": static("RP --- 01:145038 18:000730 --:------ 0016 002 0032"),
	}}
	g := newTestGateway(tr)
	msgs, err := g.ScanDisc(context.Background(), "01:145038")
	if err != nil {
		t.Fatal(err)
	}
	// Only the RF check is answered.
	testutil.AssertEqual(t, len(msgs), 1)
	testutil.AssertEqual(t, msgs[0].Code, protocol.Code("0016"))
}

func TestPollDevice(t *testing.T) {
	tr := &fakeTransport{replies: map[string]func(*protocol.Command) string{
		"RQ 01:145038 0016 00": static("RP --- 01:145038 18:000730 --:------ 0016 002 0032"),
	}}
	g := newTestGateway(tr)

	// With ctx already done, the device is polled once.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.PollDevice(ctx, "01:145038", time.Minute); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, tr.sentCmds(), []string{"I 7FFF", "RQ 0016", "RQ 1FC9", "I 7FFF"})
}
