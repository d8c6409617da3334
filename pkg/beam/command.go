// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies a parsed command
type Kind int

const (
	KindUnknown Kind = iota
	KindLaserOn
	KindLaserOff
	KindLaserToggle
	KindSetBrightness
	KindStatus
	KindSystemInfo
	KindVersion
	KindAnalogRead
	KindLaserStatus
	KindGetInitialState
	KindHeartbeatOn
	KindHeartbeatOff
	KindHeartbeatInterval
	KindDiagnostics
	KindMemoryTest
	KindRestart
	KindHelp
)

var kindNames = map[Kind]string{
	KindUnknown:           "UNKNOWN",
	KindLaserOn:           "LASER_ON",
	KindLaserOff:          "LASER_OFF",
	KindLaserToggle:       "LASER_TOGGLE",
	KindSetBrightness:     "SET_LASER_BRIGHTNESS",
	KindStatus:            "STATUS",
	KindSystemInfo:        "SYSTEM_INFO",
	KindVersion:           "VERSION",
	KindAnalogRead:        "ANALOG_READ",
	KindLaserStatus:       "LASER_STATUS",
	KindGetInitialState:   "GET_INITIAL_STATE",
	KindHeartbeatOn:       "HEARTBEAT_ON",
	KindHeartbeatOff:      "HEARTBEAT_OFF",
	KindHeartbeatInterval: "HEARTBEAT_INTERVAL",
	KindDiagnostics:       "DIAGNOSTICS",
	KindMemoryTest:        "MEMORY_TEST",
	KindRestart:           "RESTART",
	KindHelp:              "HELP",
}

// String returns the command word for a kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// HasArgument reports whether commands of this kind carry an integer value
func (k Kind) HasArgument() bool {
	return k == KindSetBrightness || k == KindHeartbeatInterval
}

// Command is one tokenized protocol line
type Command struct {
	Kind Kind
	Arg  int
	Raw  string
}

var exactCommands = map[string]Kind{
	CmdLaserOn:         KindLaserOn,
	CmdLaserOff:        KindLaserOff,
	CmdLaserToggle:     KindLaserToggle,
	CmdStatus:          KindStatus,
	CmdSystemInfo:      KindSystemInfo,
	CmdVersion:         KindVersion,
	CmdAnalogRead:      KindAnalogRead,
	CmdLaserStatus:     KindLaserStatus,
	CmdGetInitialState: KindGetInitialState,
	CmdHeartbeatOn:     KindHeartbeatOn,
	CmdHeartbeatOff:    KindHeartbeatOff,
	CmdDiagnostics:     KindDiagnostics,
	CmdMemoryTest:      KindMemoryTest,
	CmdRestart:         KindRestart,
	CmdReboot:          KindRestart,
	CmdHelp:            KindHelp,
}

var prefixCommands = []struct {
	prefix string
	kind   Kind
}{
	{CmdSetLaserPWM, KindSetBrightness},
	{CmdSetBrightness, KindSetBrightness},
	{CmdHeartbeatInterval, KindHeartbeatInterval},
}

// ParseCommand tokenizes a trimmed line. Matching is exact and
// case-sensitive; unrecognized lines yield KindUnknown.
func ParseCommand(line string) Command {
	if kind, ok := exactCommands[line]; ok {
		return Command{Kind: kind, Raw: line}
	}

	for _, pc := range prefixCommands {
		if strings.HasPrefix(line, pc.prefix) {
			return Command{
				Kind: pc.kind,
				Arg:  ParseLeadingInt(line[len(pc.prefix):]),
				Raw:  line,
			}
		}
	}

	return Command{Kind: KindUnknown, Raw: line}
}

// Valid reports whether the command's argument is within its accepted
// range. Commands without an argument are always valid; unknown commands
// never are.
func (c Command) Valid() bool {
	switch c.Kind {
	case KindUnknown:
		return false
	case KindSetBrightness:
		return Between(c.Arg, BrightnessMin, BrightnessMax)
	case KindHeartbeatInterval:
		return Between(c.Arg, HeartbeatIntervalMin, HeartbeatIntervalMax)
	default:
		return true
	}
}

// String renders the command in wire form, without terminator
func (c Command) String() string {
	switch c.Kind {
	case KindSetBrightness:
		return CmdSetBrightness + strconv.Itoa(c.Arg)
	case KindHeartbeatInterval:
		return CmdHeartbeatInterval + strconv.Itoa(c.Arg)
	case KindUnknown:
		return c.Raw
	default:
		return c.Kind.String()
	}
}

// Encode renders the command as a terminated wire line
func (c Command) Encode() []byte {
	return append([]byte(c.String()), LineTerminator)
}

// NewCommand builds an argument-less command
func NewCommand(kind Kind) Command {
	return Command{Kind: kind}
}

// NewSetBrightness builds a SET_LASER_BRIGHTNESS command
func NewSetBrightness(pct int) Command {
	return Command{Kind: KindSetBrightness, Arg: pct}
}

// NewHeartbeatInterval builds a HEARTBEAT_INTERVAL command
func NewHeartbeatInterval(ms int) Command {
	return Command{Kind: KindHeartbeatInterval, Arg: ms}
}

// ParseLeadingInt parses a base-10 integer with "leading digits"
// semantics: leading whitespace and one sign are accepted, parsing stops at
// the first non-digit, and text without digits yields 0. Values beyond the
// int32 range saturate.
func ParseLeadingInt(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	var n int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int64(s[i]-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32 + 1
		}
	}

	if neg {
		n = -n
	}
	return int(Clamp(n, math.MinInt32, math.MaxInt32))
}
