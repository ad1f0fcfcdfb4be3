package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sigurn/crc16"
)

func TestCRC16_CheckValue(t *testing.T) {
	if got := CRC16([]byte("123456789")); got != 0x29B1 {
		t.Fatalf("CRC16(123456789) = 0x%04X, want 0x29B1", got)
	}
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(empty) = 0x%04X, want 0xFFFF", got)
	}
}

func TestCRC16_MatchesTableDriven(t *testing.T) {
	table := crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

	data := make([]byte, 0, 256)
	for i := 0; i < 256; i++ {
		data = append(data, byte(i*7+3))
		want := crc16.Checksum(data, table)
		if got := CRC16(data); got != want {
			t.Fatalf("len %d: CRC16 = 0x%04X, table = 0x%04X", len(data), got, want)
		}
	}
}

func TestBuild_ChannelReadRequest(t *testing.T) {
	frame := ChannelReadRequest(5)

	if !bytes.Equal(frame[:4], Magic[:]) {
		t.Fatalf("expected magic prefix, got % X", frame[:4])
	}
	if frame[OffsetLength] != 5 {
		t.Errorf("expected length 5, got %d", frame[OffsetLength])
	}
	if Command(frame[OffsetCommand]) != CmdChannelRead {
		t.Errorf("expected command 0x41, got 0x%02X", frame[OffsetCommand])
	}
	if len(frame) != 10 {
		t.Errorf("expected 10 byte frame, got %d", len(frame))
	}
	crc := CRC16(frame[OffsetLength:8])
	if frame[8] != byte(crc>>8) || frame[9] != byte(crc) {
		t.Errorf("CRC bytes % X do not match 0x%04X", frame[8:], crc)
	}
}

func TestBuildParse_RoundTrip(t *testing.T) {
	for n := 0; n <= 249; n++ {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i ^ n)
		}
		cmd := Command(byte(n))

		raw, err := Build(cmd, payload)
		if err != nil {
			t.Fatalf("Build(%d bytes): %v", n, err)
		}
		if int(raw[OffsetLength]) != n+3 {
			t.Fatalf("payload %d: length byte %d", n, raw[OffsetLength])
		}

		f, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%d bytes payload): %v", n, err)
		}
		if f.Command != cmd {
			t.Errorf("payload %d: command 0x%02X, want 0x%02X", n, f.Command, cmd)
		}
		if !bytes.Equal(f.Payload, payload) {
			t.Errorf("payload %d: mismatch", n)
		}
		if !f.CRCValid {
			t.Errorf("payload %d: CRC reported invalid", n)
		}
	}
}

func TestBuild_PayloadTooLarge(t *testing.T) {
	if _, err := Build(CmdChannelWrite, make([]byte, MaxPayloadSize+1)); err == nil {
		t.Fatal("expected error for oversized payload")
	}
	if _, err := Build(CmdChannelWrite, make([]byte, MaxPayloadSize)); err != nil {
		t.Fatalf("unexpected error at max payload: %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	good := MustBuild(CmdChannelRead, IndexRequest(1))

	for n := 1; n <= 7; n++ {
		if _, err := Parse(good[:n]); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("%d byte buffer: expected ErrMalformedFrame, got %v", n, err)
		}
	}

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0xA4
	if _, err := Parse(badMagic); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("bad magic: expected ErrMalformedFrame, got %v", err)
	}

	badLength := append([]byte(nil), good...)
	badLength[OffsetLength] = 2
	if _, err := Parse(badLength); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("length 2: expected ErrMalformedFrame, got %v", err)
	}

	if _, err := Parse(good[:len(good)-1]); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("truncated: expected ErrMalformedFrame, got %v", err)
	}
}

func TestParse_CRCMismatch(t *testing.T) {
	raw := MustBuild(CmdChannelWrite, []byte{1, 2, 3})
	raw[len(raw)-1] ^= 0xFF

	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.CRCValid {
		t.Fatal("expected CRCValid=false for corrupted checksum")
	}
	if !bytes.Equal(f.Payload, []byte{1, 2, 3}) {
		t.Errorf("payload still expected, got % X", f.Payload)
	}
}

func TestParse_IgnoresTrailingBytes(t *testing.T) {
	raw := append(MustBuild(CmdStatusSync, nil), 0xDE, 0xAD)

	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Command != CmdStatusSync || len(f.Payload) != 0 || !f.CRCValid {
		t.Errorf("unexpected frame %+v", f)
	}
}

func TestCommandString(t *testing.T) {
	if CmdChannelWrite.String() != "CHANNEL_WRITE" {
		t.Errorf("got %s", CmdChannelWrite)
	}
	if Command(0xEE).String() != "UNKNOWN" {
		t.Errorf("got %s", Command(0xEE))
	}
}
