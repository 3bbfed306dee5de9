package token

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// RefreshPayload is the plaintext sealed inside a refresh token. A chain is
// born with Counter zero and every rotation increments it by exactly one;
// the pair (ChainID, Counter) names one generation of one session.
type RefreshPayload struct {
	UserID    string
	ChainID   uuid.UUID
	Counter   uint64
	ExpiresAt time.Time
}

// refreshFormatVersion is the first plaintext byte. Decoders reject anything
// else, which leaves room to evolve the layout without ambiguity.
const refreshFormatVersion byte = 1

// maxUserIDLen bounds the single length byte in the wire layout.
const maxUserIDLen = 255

// encodeRefreshPayload packs a payload into its binary wire form:
//
//	[1] version  [16] chain id  [8] counter BE  [8] unix expiry BE
//	[1] user id length  [n] user id
func encodeRefreshPayload(p RefreshPayload) ([]byte, error) {
	if p.UserID == "" {
		return nil, errors.New("refresh payload: empty user id")
	}
	if len(p.UserID) > maxUserIDLen {
		return nil, fmt.Errorf("refresh payload: user id exceeds %d bytes", maxUserIDLen)
	}
	if p.ChainID == uuid.Nil {
		return nil, errors.New("refresh payload: zero chain id")
	}

	var buf bytes.Buffer
	buf.WriteByte(refreshFormatVersion)
	buf.Write(p.ChainID[:])
	if err := binary.Write(&buf, binary.BigEndian, p.Counter); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, p.ExpiresAt.Unix()); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(len(p.UserID)))
	buf.WriteString(p.UserID)
	return buf.Bytes(), nil
}

func decodeRefreshPayload(data []byte) (RefreshPayload, error) {
	var p RefreshPayload
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return RefreshPayload{}, fmt.Errorf("refresh payload: %w", err)
	}
	if version != refreshFormatVersion {
		return RefreshPayload{}, fmt.Errorf("refresh payload: unsupported version %d", version)
	}

	if _, err := io.ReadFull(r, p.ChainID[:]); err != nil {
		return RefreshPayload{}, fmt.Errorf("refresh payload: chain id: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &p.Counter); err != nil {
		return RefreshPayload{}, fmt.Errorf("refresh payload: counter: %w", err)
	}
	var expiry int64
	if err := binary.Read(r, binary.BigEndian, &expiry); err != nil {
		return RefreshPayload{}, fmt.Errorf("refresh payload: expiry: %w", err)
	}
	p.ExpiresAt = time.Unix(expiry, 0)

	idLen, err := r.ReadByte()
	if err != nil {
		return RefreshPayload{}, fmt.Errorf("refresh payload: user id length: %w", err)
	}
	if idLen == 0 {
		return RefreshPayload{}, errors.New("refresh payload: empty user id")
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(r, id); err != nil {
		return RefreshPayload{}, fmt.Errorf("refresh payload: user id: %w", err)
	}
	p.UserID = string(id)

	if r.Len() != 0 {
		return RefreshPayload{}, errors.New("refresh payload: trailing bytes")
	}
	if p.ChainID == uuid.Nil {
		return RefreshPayload{}, errors.New("refresh payload: zero chain id")
	}
	return p, nil
}
