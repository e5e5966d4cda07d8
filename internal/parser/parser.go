// Package parser decodes the JSON-lines replay format: one host event per
// line, with tracking batches, lifecycle callbacks and user actions.
package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/pkg/core"
)

// ErrSyntax wraps every rejected line.
var ErrSyntax = errors.New("invalid replay record")

// maxLineSize bounds a single record.
const maxLineSize = 1 << 20

// Kind names a replay record type.
type Kind string

const (
	KindBatch        Kind = "batch"
	KindFocus        Kind = "focus"
	KindPause        Kind = "pause"
	KindSessionState Kind = "session_state"
	KindPermission   Kind = "permission"
	KindAction       Kind = "action"
	KindPanel        Kind = "panel"
)

// Record is one decoded replay line. Only the fields of its Kind are set.
type Record struct {
	Line int
	// At is the offset from the start of the replay.
	At   time.Duration
	Kind Kind

	Batch   core.Batch
	Paused  bool
	State   core.SessionState
	Granted bool
	Action  core.ActionKind
	Open    bool
}

type wireEvent struct {
	Marker   string        `json:"marker"`
	State    string        `json:"state"`
	Position []json.Number `json:"position"`
	Rotation []json.Number `json:"rotation"`
}

type wireRecord struct {
	At      json.Number `json:"at"`
	Type    string      `json:"type"`
	Added   []wireEvent `json:"added"`
	Updated []wireEvent `json:"updated"`
	Removed []wireEvent `json:"removed"`
	Paused  *bool       `json:"paused"`
	State   string      `json:"state"`
	Granted *bool       `json:"granted"`
	Action  string      `json:"action"`
	Open    *bool       `json:"open"`
}

// Parser decodes replay records.
type Parser struct {
	logger  *slog.Logger
	parsed  atomic.Int64
	skipped atomic.Int64
}

// NewParser creates a parser. A nil logger discards output.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Parser{logger: logger}
}

// Parsed returns the number of records decoded so far.
func (p *Parser) Parsed() int64 { return p.parsed.Load() }

// Skipped returns the number of blank or comment lines seen so far.
func (p *Parser) Skipped() int64 { return p.skipped.Load() }

// Scan decodes r line by line and calls fn for every record. Blank lines and
// lines starting with '#' are skipped. Scanning stops at the first decode
// error or the first error returned by fn.
func (p *Parser) Scan(r io.Reader, fn func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			p.skipped.Add(1)
			continue
		}
		rec, err := p.ParseLine(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		rec.Line = line
		if err := fn(rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading replay: %w", err)
	}
	return nil
}

// ParseLine decodes a single record.
func (p *Parser) ParseLine(raw []byte) (Record, error) {
	var w wireRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	rec := Record{Kind: Kind(strings.ToLower(w.Type))}
	if w.At != "" {
		ms, err := parseFloat(w.At)
		if err != nil || ms < 0 {
			return Record{}, fmt.Errorf("%w: bad offset %q", ErrSyntax, w.At)
		}
		rec.At = time.Duration(ms * float64(time.Millisecond))
	}

	var err error
	switch rec.Kind {
	case KindBatch:
		rec.Batch, err = parseBatch(w)
	case KindFocus:
	case KindPause:
		if w.Paused == nil {
			err = missing("paused")
		} else {
			rec.Paused = *w.Paused
		}
	case KindSessionState:
		rec.State, err = core.ParseSessionState(w.State)
	case KindPermission:
		if w.Granted == nil {
			err = missing("granted")
		} else {
			rec.Granted = *w.Granted
		}
	case KindAction:
		rec.Action, err = parseAction(w.Action)
	case KindPanel:
		if w.Open == nil {
			err = missing("open")
		} else {
			rec.Open = *w.Open
		}
	default:
		err = fmt.Errorf("unknown type %q", w.Type)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrSyntax, rec.Kind, err)
	}

	p.parsed.Add(1)
	p.logger.Debug("parsed replay record", "kind", rec.Kind, "at", rec.At)
	return rec, nil
}

func missing(field string) error {
	return fmt.Errorf("missing %q", field)
}

func parseBatch(w wireRecord) (core.Batch, error) {
	var b core.Batch
	var err error
	if b.Added, err = parseEvents("added", w.Added); err != nil {
		return b, err
	}
	if b.Updated, err = parseEvents("updated", w.Updated); err != nil {
		return b, err
	}
	if b.Removed, err = parseEvents("removed", w.Removed); err != nil {
		return b, err
	}
	return b, nil
}

func parseEvents(list string, in []wireEvent) ([]core.TrackingEvent, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]core.TrackingEvent, 0, len(in))
	for i, w := range in {
		ev, err := parseEvent(w)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", list, i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseEvent(w wireEvent) (core.TrackingEvent, error) {
	ev := core.TrackingEvent{Marker: w.Marker, Pose: core.IdentityPose()}
	if w.Marker == "" {
		return ev, missing("marker")
	}

	ev.State = core.TrackingFull
	if w.State != "" {
		st, err := core.ParseTrackingState(w.State)
		if err != nil {
			return ev, err
		}
		ev.State = st
	}

	if len(w.Position) > 0 {
		v, err := parseVector(w.Position, 3)
		if err != nil {
			return ev, fmt.Errorf("position: %w", err)
		}
		ev.Pose.Position = mgl32.Vec3{v[0], v[1], v[2]}
	}
	if len(w.Rotation) > 0 {
		v, err := parseVector(w.Rotation, 4)
		if err != nil {
			return ev, fmt.Errorf("rotation: %w", err)
		}
		q := mgl32.Quat{W: v[0], V: mgl32.Vec3{v[1], v[2], v[3]}}
		if q.Len() == 0 {
			return ev, errors.New("rotation: zero quaternion")
		}
		ev.Pose.Rotation = q.Normalize()
	}
	return ev, nil
}

func parseVector(in []json.Number, n int) ([]float32, error) {
	if len(in) != n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(in))
	}
	out := make([]float32, n)
	for i, c := range in {
		f, err := parseFloat(c)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFloat accepts numbers and numeric strings ("1.5").
func parseFloat(n json.Number) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", string(n))
	}
	return f, nil
}

func parseAction(s string) (core.ActionKind, error) {
	switch k := core.ActionKind(strings.ToLower(s)); k {
	case core.ActionOpenMap, core.ActionShare, core.ActionOpenURL:
		return k, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}
