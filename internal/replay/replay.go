// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package replay implements an offline host: it reads a textual stream of
// block-execution events and drives the recorder with them, standing in
// for a live execution engine. This is what turns a raw, undeduplicated
// trace dump into a coverage file.
//
// One event per line, comma separated:
//
//	asid,pc,size,kernel[,pid,tid,name]
//
// asid and pc accept 0x-prefixed hex, kernel is 0 or 1, and the optional
// trailing fields supply the process identity an engine would have
// resolved. Blank lines and lines starting with '#' are skipped.
package replay // import "github.com/blockcov/blockcov/internal/replay"

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/blockcov/blockcov/host"
	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/procinfo"
	"github.com/blockcov/blockcov/recorder"
)

type event struct {
	cpu       host.StaticCPU
	pc        libcov.Address
	size      uint32
	thread    procinfo.ThreadInfo
	hasThread bool
	name      string
}

// Player feeds recorded events to a BlockHandler. It doubles as the
// context resolver for the stream: while an event is being delivered, the
// identity fields of that event are what resolution returns, mirroring how
// a live engine resolves the currently executing context.
type Player struct {
	cur event
}

var _ procinfo.Resolver = (*Player)(nil)

// NewPlayer returns a Player with no current event.
func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) CurrentThread(host.CPU) (procinfo.ThreadInfo, bool) {
	return p.cur.thread, p.cur.hasThread
}

func (p *Player) ProcessName(host.CPU) (string, bool) {
	return p.cur.name, p.cur.name != ""
}

// ThreadSource exposes the stream's thread identities for resolvers that
// look process names up elsewhere (e.g. on the live host OS).
func (p *Player) ThreadSource() procinfo.ThreadSource {
	return func(cpu host.CPU) (procinfo.ThreadInfo, bool) {
		return p.CurrentThread(cpu)
	}
}

// Run parses events from r and delivers each to handler, stopping early
// when ctx is cancelled. Parse errors abort the replay with the offending
// line number; events delivered up to that point remain recorded.
func (p *Player) Run(ctx context.Context, r io.Reader,
	handler recorder.BlockHandler) error {
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := parseLine(line, &p.cur); err != nil {
			return fmt.Errorf("trace line %d: %w", lineno, err)
		}
		handler.HandleBlockStart(p.cur.cpu, p.cur.pc, p.cur.size)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	return nil
}

func parseLine(line string, ev *event) error {
	fields := strings.Split(line, ",")
	if len(fields) != 4 && len(fields) != 7 {
		return fmt.Errorf("expected 4 or 7 fields, got %d", len(fields))
	}

	asid, err := strconv.ParseUint(fields[0], 0, 64)
	if err != nil {
		return fmt.Errorf("bad asid %q: %w", fields[0], err)
	}
	pc, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return fmt.Errorf("bad pc %q: %w", fields[1], err)
	}
	size, err := strconv.ParseUint(fields[2], 0, 32)
	if err != nil {
		return fmt.Errorf("bad size %q: %w", fields[2], err)
	}
	var kernel bool
	switch fields[3] {
	case "0":
		kernel = false
	case "1":
		kernel = true
	default:
		return fmt.Errorf("bad kernel flag %q", fields[3])
	}

	*ev = event{
		cpu:  host.StaticCPU{Asid: libcov.ASID(asid), Kernel: kernel},
		pc:   libcov.Address(pc),
		size: uint32(size),
	}

	if len(fields) == 7 {
		pid, err := strconv.ParseUint(fields[4], 0, 64)
		if err != nil {
			return fmt.Errorf("bad pid %q: %w", fields[4], err)
		}
		tid, err := strconv.ParseUint(fields[5], 0, 64)
		if err != nil {
			return fmt.Errorf("bad tid %q: %w", fields[5], err)
		}
		ev.thread = procinfo.ThreadInfo{PID: libcov.PID(pid), TID: libcov.TID(tid)}
		ev.hasThread = true
		ev.name = fields[6]
	}
	return nil
}
