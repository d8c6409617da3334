// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import (
	"fmt"
	"time"
)

// Statistics tracks line statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalLines      uint64
	TextLines       uint64
	ValidMessages   uint64
	InitialStates   uint64
	Heartbeats      uint64
	Statuses        uint64
	DecodeErrors    uint64
	OverlongLines   uint64
	AnomalousValues uint64
	Reboots         uint64
	Anomalies       map[AnomalyType]uint64

	// Rates (calculated)
	LineRate  float64 // lines/sec
	ErrorRate float64 // errors/sec

	lastUptime int64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		Anomalies:      make(map[AnomalyType]uint64),
	}
}

// Update updates statistics based on a line, its decoded message and any
// errors. msg is nil for free-text lines and failed decodes.
func (s *Statistics) Update(line *Line, msg *Message, decodeErr error, validationErrors []ValidationError) {
	s.TotalLines++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.DecodeErrors++
		return
	}

	if msg == nil {
		if line != nil && !line.IsStructured() {
			s.TextLines++
		}
		return
	}

	switch msg.Type {
	case TypeInitialState:
		s.InitialStates++
	case TypeHeartbeat:
		s.Heartbeats++
	case TypeStatus:
		s.Statuses++
	}

	// Uptime only moves backwards across a controller restart
	uptime := msg.Uptime()
	if uptime < s.lastUptime {
		s.Reboots++
	}
	s.lastUptime = uptime

	if len(validationErrors) > 0 {
		s.AnomalousValues++
		for _, err := range validationErrors {
			s.Anomalies[err.Type]++
		}
		return
	}

	s.ValidMessages++
}

// RecordOverlong counts a line dropped by the decoder for exceeding the
// length limit
func (s *Statistics) RecordOverlong() {
	s.OverlongLines++
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates line and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.LineRate = float64(s.TotalLines) / elapsed
		errorCount := s.DecodeErrors + s.OverlongLines + s.AnomalousValues
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, decodeErrorPercent, anomalousPercent float64
	if s.TotalLines > 0 {
		validPercent = float64(s.ValidMessages) * 100.0 / float64(s.TotalLines)
		decodeErrorPercent = float64(s.DecodeErrors) * 100.0 / float64(s.TotalLines)
		anomalousPercent = float64(s.AnomalousValues) * 100.0 / float64(s.TotalLines)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Lines:     %8d\n", s.TotalLines)
	result += fmt.Sprintf("Text Lines:      %8d\n", s.TextLines)
	result += fmt.Sprintf("Valid Messages:  %8d (%.1f%%)\n", s.ValidMessages, validPercent)
	result += fmt.Sprintf("  initial_state:    %5d\n", s.InitialStates)
	result += fmt.Sprintf("  heartbeat:        %5d\n", s.Heartbeats)
	result += fmt.Sprintf("  status:           %5d\n", s.Statuses)

	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, decodeErrorPercent)
	}
	if s.OverlongLines > 0 {
		result += fmt.Sprintf("Overlong Lines:  %8d\n", s.OverlongLines)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Msgs:  %8d (%.1f%%)\n", s.AnomalousValues, anomalousPercent)
		for t := AnomalyBrightnessRange; t <= AnomalyDecodeError; t++ {
			if n := s.Anomalies[t]; n > 0 {
				result += fmt.Sprintf("  %-18s %5d\n", t.String()+":", n)
			}
		}
	}
	if s.Reboots > 0 {
		result += fmt.Sprintf("Reboots Seen:    %8d\n", s.Reboots)
	}

	result += fmt.Sprintf("Line Rate:       %8.1f lines/sec\n", s.LineRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
