// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/beacon/pkg/beam"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	onSleep func(d time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.Advance(d)
	if c.onSleep != nil {
		c.onSleep(d)
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeOutput struct {
	mu     sync.Mutex
	writes []int
	err    error
}

func (o *fakeOutput) Write(duty int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = append(o.writes, duty)
	return o.err
}

func (o *fakeOutput) Writes() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.writes...)
}

func (o *fakeOutput) Last() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.writes) == 0 {
		return -1
	}
	return o.writes[len(o.writes)-1]
}

func (o *fakeOutput) Reset() {
	o.mu.Lock()
	o.writes = nil
	o.mu.Unlock()
}

type memStore struct {
	mu     sync.Mutex
	values map[string]int
	getErr error
	puts   int
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]int)}
}

func (s *memStore) GetInt(key string, def int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return def, s.getErr
	}
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *memStore) PutInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.puts++
	return nil
}

type fakeAnalog struct {
	raw int
	err error
}

func (a *fakeAnalog) ReadRaw() (int, error) { return a.raw, a.err }

type fakeHost struct {
	allocOK bool
}

func (fakeHost) ChipModel() string   { return "TEST-CHIP" }
func (fakeHost) ChipRevision() int   { return 2 }
func (fakeHost) CPUFreqMHz() int     { return 240 }
func (fakeHost) FlashSize() int64    { return 8 * 1024 * 1024 }
func (fakeHost) HeapSize() int64     { return 320000 }
func (fakeHost) FreeHeap() int64     { return 280000 }
func (fakeHost) PSRAMSize() int64    { return 0 }
func (fakeHost) FreePSRAM() int64    { return 0 }
func (fakeHost) SDKVersion() string  { return "go-test" }
func (fakeHost) DeviceID() string    { return "abc123" }
func (h fakeHost) Allocate(int) bool { return h.allocOK }

// fakeRestarter records the output level at the moment of restart
type fakeRestarter struct {
	out       *fakeOutput
	clock     *fakeClock
	calls     int
	dutyAtReq int
	timeAtReq time.Time
}

func (r *fakeRestarter) Restart() {
	r.calls++
	r.dutyAtReq = r.out.Last()
	r.timeAtReq = r.clock.Now()
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

type harness struct {
	ctl       *Controller
	clock     *fakeClock
	out       *fakeOutput
	store     *memStore
	analog    *fakeAnalog
	host      *fakeHost
	restarter *fakeRestarter
	buf       *syncBuffer
}

func newHarness(t *testing.T, cfg Config, store *memStore) *harness {
	t.Helper()
	if store == nil {
		store = newMemStore()
	}
	h := &harness{
		clock:  newFakeClock(),
		out:    &fakeOutput{},
		store:  store,
		analog: &fakeAnalog{raw: 2048},
		host:   &fakeHost{allocOK: true},
		buf:    &syncBuffer{},
	}
	h.restarter = &fakeRestarter{out: h.out, clock: h.clock}
	h.ctl = NewController(cfg, Deps{
		Store:     h.store,
		Output:    h.out,
		Analog:    h.analog,
		Host:      h.host,
		Restarter: h.restarter,
		Clock:     h.clock,
		Writer:    h.buf,
	})
	return h
}

// booted returns a harness after Boot with output and line capture cleared
func booted(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := newHarness(t, cfg, nil)
	h.ctl.Boot()
	h.out.Reset()
	h.buf.Reset()
	return h
}

func (h *harness) lines() []string {
	text := strings.TrimSuffix(h.buf.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func (h *harness) count(substr string) int {
	n := 0
	for _, l := range h.lines() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func (h *harness) messages(t *testing.T, typ beam.MessageType) []*beam.Message {
	t.Helper()
	var out []*beam.Message
	for _, l := range h.lines() {
		msg, err := beam.DecodeMessage(l)
		if err != nil {
			continue
		}
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

// tickFor advances the clock in steps, ticking without input
func (h *harness) tickFor(total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		h.clock.Advance(step)
		h.ctl.Tick("", false)
	}
}

func (h *harness) send(line string) {
	h.clock.Advance(DefaultTick)
	h.ctl.Tick(line, true)
}

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.HeartbeatEnabled = false
	return cfg
}

func pct(n int) string { return fmt.Sprintf("%d%%", n) }
