// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tftp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	opRRQ   = 1
	opWRQ   = 2
	opDATA  = 3
	opACK   = 4
	opERROR = 5

	// BlockSize is the payload of every DATA packet but the last.
	BlockSize = 512

	headerLen = 4
	mode      = "octet"
)

type packet struct {
	op      uint16
	block   uint16 // DATA and ACK block number, ERROR code
	payload []byte // DATA contents, ERROR message
}

func (p packet) String() string {
	switch p.op {
	case opDATA:
		return fmt.Sprintf("DATA(%d, %d bytes)", p.block, len(p.payload))
	case opACK:
		return fmt.Sprintf("ACK(%d)", p.block)
	case opERROR:
		return fmt.Sprintf("ERROR(%d, %q)", p.block, p.payload)
	default:
		return fmt.Sprintf("op %d", p.op)
	}
}

// parsePacket decodes the packets a client can receive.  Payloads alias b.
func parsePacket(b []byte) (packet, error) {
	if len(b) < headerLen {
		return packet{}, fmt.Errorf("%w: %d byte packet", ErrBadPacket, len(b))
	}
	p := packet{
		op:    binary.BigEndian.Uint16(b[:2]),
		block: binary.BigEndian.Uint16(b[2:4]),
	}
	switch p.op {
	case opDATA:
		p.payload = b[headerLen:]
		if len(p.payload) > BlockSize {
			return packet{}, fmt.Errorf("%w: %d byte DATA block", ErrBadPacket, len(p.payload))
		}
	case opACK:
	case opERROR:
		p.payload = bytes.TrimRight(b[headerLen:], "\x00")
	default:
		return packet{}, fmt.Errorf("%w: opcode %d", ErrBadPacket, p.op)
	}
	return p, nil
}

func requestPacket(op uint16, name string) []byte {
	b := make([]byte, 0, 2+len(name)+1+len(mode)+1)
	b = binary.BigEndian.AppendUint16(b, op)
	b = append(b, name...)
	b = append(b, 0)
	b = append(b, mode...)
	return append(b, 0)
}

func dataPacket(block uint16, data []byte) []byte {
	b := make([]byte, headerLen, headerLen+len(data))
	binary.BigEndian.PutUint16(b[:2], opDATA)
	binary.BigEndian.PutUint16(b[2:4], block)
	return append(b, data...)
}

func ackPacket(block uint16) []byte {
	b := make([]byte, headerLen)
	binary.BigEndian.PutUint16(b[:2], opACK)
	binary.BigEndian.PutUint16(b[2:4], block)
	return b
}

func errorPacket(code uint16, msg string) []byte {
	b := make([]byte, headerLen, headerLen+len(msg)+1)
	binary.BigEndian.PutUint16(b[:2], opERROR)
	binary.BigEndian.PutUint16(b[2:4], code)
	b = append(b, msg...)
	return append(b, 0)
}
