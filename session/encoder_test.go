package session

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func encodeLegacyForTest(r *Record, version byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(version)
	for _, s := range []string{r.SessionID, r.User.ID, r.User.Name, r.User.Email, r.AccessToken, r.RefreshToken} {
		_ = writeString(&buf, s)
	}
	_ = binary.Write(&buf, binary.BigEndian, r.ValidUntil)
	_ = binary.Write(&buf, binary.BigEndian, r.RefreshUntil)
	buf.WriteByte(byte(r.Error))
	_ = binary.Write(&buf, binary.BigEndian, r.CreatedAt)
	if version >= recordFormatVersionV2 {
		_ = binary.Write(&buf, binary.BigEndian, r.UpdatedAt)
	}
	return buf.Bytes()
}

func TestEncodeDecodeKeepsEveryField(t *testing.T) {
	rec := testRecord()
	rec.TokenID = "jti-42"
	rec.Error = ErrorRefreshTokenExpired
	rec.UpdatedAt = rec.CreatedAt + 42

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != CurrentSchemaVersion {
		t.Fatalf("expected version byte %d, got %d", CurrentSchemaVersion, data[0])
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *rec {
		t.Fatalf("record mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

func TestDecodeSchemaV1DefaultsUpdatedAt(t *testing.T) {
	rec := testRecord()
	rec.UpdatedAt = 0

	got, err := Decode(encodeLegacyForTest(rec, recordFormatVersionV1))
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if got.UpdatedAt != rec.CreatedAt {
		t.Fatalf("expected UpdatedAt=%d, got %d", rec.CreatedAt, got.UpdatedAt)
	}
	if got.AccessToken != rec.AccessToken || got.RefreshUntil != rec.RefreshUntil {
		t.Fatalf("v1 fields not preserved: %+v", got)
	}
}

func TestDecodeSchemaV2HasNoTokenID(t *testing.T) {
	rec := testRecord()
	rec.UpdatedAt = rec.CreatedAt + 7

	got, err := Decode(encodeLegacyForTest(rec, recordFormatVersionV2))
	if err != nil {
		t.Fatalf("decode v2: %v", err)
	}
	if got.TokenID != "" {
		t.Fatalf("expected empty TokenID, got %q", got.TokenID)
	}
	if got.UpdatedAt != rec.UpdatedAt || got.SessionID != rec.SessionID {
		t.Fatalf("v2 fields not preserved: %+v", got)
	}
}

func TestDecodeRejectsMalformedBlobs(t *testing.T) {
	valid, err := Encode(testRecord())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	badKind := append([]byte(nil), valid...)
	// error byte sits right before the two trailing int64 timestamps
	badKind[len(badKind)-17] = 9

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "empty", data: nil},
		{name: "unknown version", data: append([]byte{7}, valid[1:]...), want: "unsupported session schema version 7"},
		{name: "truncated", data: valid[:len(valid)-3]},
		{name: "trailing bytes", data: append(append([]byte(nil), valid...), 0x00), want: "trailing bytes"},
		{name: "invalid error kind", data: badKind, want: "invalid session error kind"},
		{name: "string length past end", data: []byte{recordFormatVersionCurrent, 0xff, 0xff, 'a'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if err == nil {
				t.Fatal("expected decode error")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeRejectsOversizeValue(t *testing.T) {
	rec := testRecord()
	rec.AccessToken = strings.Repeat("a", 1<<16)

	_, err := Encode(rec)
	if err == nil || !strings.Contains(err.Error(), "access token") {
		t.Fatalf("expected access token length error, got %v", err)
	}
}

func FuzzDecode(f *testing.F) {
	valid, _ := Encode(testRecord())
	f.Add(valid)
	f.Add([]byte{recordFormatVersionV1})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(rec)
		if err != nil {
			t.Fatalf("re-encode decoded record: %v", err)
		}
		if _, err := Decode(again); err != nil {
			t.Fatalf("decode re-encoded record: %v", err)
		}
	})
}
