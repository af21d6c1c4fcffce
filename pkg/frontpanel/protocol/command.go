// Zaparoo Frontpanel
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Frontpanel.
//
// Zaparoo Frontpanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Frontpanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Frontpanel.  If not, see <http://www.gnu.org/licenses/>.

package protocol

import "fmt"

// Command is the identity byte of a host to front processor frame.
type Command byte

// Commands sent to the front processor.
const (
	CmdBoot          Command = 0x01
	CmdBootAck       Command = 0x02
	CmdShowText      Command = 0x10
	CmdBrightness    Command = 0x11
	CmdIcon          Command = 0x12
	CmdAllIcons      Command = 0x13
	CmdDisplayOnOff  Command = 0x14
	CmdLED           Command = 0x15
	CmdGetTime       Command = 0x20
	CmdGetVersion    Command = 0x21
	CmdGetWakeReason Command = 0x22
	CmdDeepStandby   Command = 0x30
)

// String renders the command with no whitespace, which keeps wire logs
// readable.
func (c Command) String() string {
	switch c {
	case CmdBoot:
		return "CMD_Boot"
	case CmdBootAck:
		return "CMD_BootAck"
	case CmdShowText:
		return "CMD_ShowText"
	case CmdBrightness:
		return "CMD_Brightness"
	case CmdIcon:
		return "CMD_Icon"
	case CmdAllIcons:
		return "CMD_AllIcons"
	case CmdDisplayOnOff:
		return "CMD_DisplayOnOff"
	case CmdLED:
		return "CMD_LED"
	case CmdGetTime:
		return "CMD_GetTime"
	case CmdGetVersion:
		return "CMD_GetVersion"
	case CmdGetWakeReason:
		return "CMD_GetWakeReason"
	case CmdDeepStandby:
		return "CMD_DeepStandby"
	default:
		return fmt.Sprintf("CMD_UNKNOWN_0x%02x", byte(c))
	}
}

// Response is the identity byte of a front processor to host frame.
type Response byte

// Responses and reports from the front processor.
const (
	RspPreamble   Response = 0xA0
	RspAck        Response = 0xC5
	RspTime       Response = 0xD1
	RspWakeReason Response = 0xD5
	RspVersion    Response = 0xE5
	RspPrivate    Response = 0xE9
	RspKey        Response = 0xF1
	RspRemote     Response = 0xF2
)

func (r Response) String() string {
	switch r {
	case RspPreamble:
		return "RSP_Preamble"
	case RspAck:
		return "RSP_Ack"
	case RspTime:
		return "RSP_Time"
	case RspWakeReason:
		return "RSP_WakeReason"
	case RspVersion:
		return "RSP_Version"
	case RspPrivate:
		return "RSP_Private"
	case RspKey:
		return "RPT_Key"
	case RspRemote:
		return "RPT_Remote"
	default:
		return fmt.Sprintf("RSP_UNKNOWN_0x%02x", byte(r))
	}
}

// Kind classifies a response by how the dispatcher routes it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindPreamble announces the next staged boot response.
	KindPreamble
	// KindAck is a generic acknowledgement echoing the command id.
	KindAck
	// KindData is a typed data response to a query.
	KindData
	// KindKey is an unsolicited key or remote report.
	KindKey
)

func (k Kind) String() string {
	switch k {
	case KindPreamble:
		return "preamble"
	case KindAck:
		return "ack"
	case KindData:
		return "data"
	case KindKey:
		return "key"
	default:
		return "unknown"
	}
}

// ResponseSpec describes how to frame and route one response id.
type ResponseSpec struct {
	ID   Response
	Kind Kind
	// Payload is the payload length the id must declare. Fixed frames (the
	// preamble) have no length byte and Payload counts the bytes after the id.
	Payload int
	Fixed   bool
}

// DefaultResponses is the response table shared by the built-in profiles.
var DefaultResponses = []ResponseSpec{
	{ID: RspPreamble, Kind: KindPreamble, Payload: 1, Fixed: true},
	{ID: RspAck, Kind: KindAck, Payload: 1},
	{ID: RspTime, Kind: KindData, Payload: 5},
	{ID: RspWakeReason, Kind: KindData, Payload: 1},
	{ID: RspVersion, Kind: KindData, Payload: 4},
	{ID: RspPrivate, Kind: KindData, Payload: 8},
	{ID: RspKey, Kind: KindKey, Payload: 2},
	{ID: RspRemote, Kind: KindKey, Payload: 4},
}
