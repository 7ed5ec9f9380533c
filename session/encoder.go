package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	recordFormatVersionCurrent = 3
	recordFormatVersionV2      = 2
	recordFormatVersionV1      = 1
)

// CurrentSchemaVersion is the record format written by [Encode].
const CurrentSchemaVersion = recordFormatVersionCurrent

// Encode serializes a [Record] into the compact binary layout:
//
//	version | sid | uid | name | email | access | refresh | tokenID | validUntil | refreshUntil | error | createdAt | updatedAt
//
// Strings are uint16 length-prefixed; timestamps are big-endian int64.
// Version 1 had no updatedAt field; version 2 had no tokenID.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}

	var buf bytes.Buffer
	buf.Grow(32 + len(r.AccessToken) + len(r.RefreshToken) + len(r.User.Email) + len(r.User.Name))
	buf.WriteByte(recordFormatVersionCurrent)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"sessionID", r.SessionID},
		{"userID", r.User.ID},
		{"name", r.User.Name},
		{"email", r.User.Email},
		{"access token", r.AccessToken},
		{"refresh token", r.RefreshToken},
		{"token id", r.TokenID},
	} {
		if err := writeString(&buf, field.value); err != nil {
			return nil, fmt.Errorf("%s: %w", field.name, err)
		}
	}

	for _, v := range []int64{r.ValidUntil, r.RefreshUntil} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(byte(r.Error))
	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.UpdatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode] (any supported version).
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version < recordFormatVersionV1 || version > recordFormatVersionCurrent {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	r := &Record{}
	fields := []*string{
		&r.SessionID,
		&r.User.ID,
		&r.User.Name,
		&r.User.Email,
		&r.AccessToken,
		&r.RefreshToken,
	}
	if version >= recordFormatVersionCurrent {
		fields = append(fields, &r.TokenID)
	}
	for _, dst := range fields {
		if *dst, err = readString(reader); err != nil {
			return nil, err
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &r.ValidUntil); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.RefreshUntil); err != nil {
		return nil, err
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind > byte(ErrorRefreshTokenExpired) {
		return nil, errors.New("invalid session error kind")
	}
	r.Error = ErrorKind(kind)

	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, err
	}
	if version >= recordFormatVersionV2 {
		if err := binary.Read(reader, binary.BigEndian, &r.UpdatedAt); err != nil {
			return nil, err
		}
	} else {
		r.UpdatedAt = r.CreatedAt
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after session record")
	}

	return r, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errors.New("value too long")
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > reader.Len() {
		return "", io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", err
	}
	return string(out), nil
}
