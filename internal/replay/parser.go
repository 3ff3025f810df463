package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/match"
)

// ParsedMatch is a decoded event log
type ParsedMatch struct {
	FormationA match.Formation `json:"formationA"`
	FormationB match.Formation `json:"formationB"`
	// Header holds the raw formation tokens, empty when the log has none
	Header  [2]string `json:"header"`
	Events  []Event   `json:"events"`
	Skipped int       `json:"skipped"`
}

// Parser decodes event logs. Unknown lines are skipped, never fatal
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// MaxLineBytes bounds a single log line. Longer lines are skipped
const MaxLineBytes = 1024 * 1024

// Parse reads a whole log. It only fails when r fails
func (p *Parser) Parse(r io.Reader) (*ParsedMatch, error) {
	pm := &ParsedMatch{FormationA: FallbackFormation, FormationB: FallbackFormation}
	br := bufio.NewReaderSize(r, 64*1024)

	lineNo := 0
	seenContent := false
	for {
		raw, overlong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event log: %w", err)
		}
		lineNo++
		if overlong {
			seenContent = true
			pm.Skipped++
			p.logger.Debug("Skipping overlong event line", zap.Int("line", lineNo))
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !seenContent {
			seenContent = true
			if a, b, ok := strings.Cut(line, " vs "); ok {
				pm.Header = [2]string{strings.TrimSpace(a), strings.TrimSpace(b)}
				pm.FormationA = ParseFormationToken(pm.Header[0])
				pm.FormationB = ParseFormationToken(pm.Header[1])
				continue
			}
		}

		ev, ok := parseLine(line)
		if !ok {
			pm.Skipped++
			p.logger.Debug("Skipping unrecognized event line",
				zap.Int("line", lineNo),
				zap.String("content", line),
			)
			continue
		}
		ev.Line = lineNo
		pm.Events = append(pm.Events, ev)
	}

	p.logger.Debug("Parsed event log",
		zap.Int("events", len(pm.Events)),
		zap.Int("skipped", pm.Skipped),
		zap.String("formation_a", pm.FormationA.String()),
		zap.String("formation_b", pm.FormationB.String()),
	)
	return pm, nil
}

// ParseString is a convenience wrapper around Parse
func (p *Parser) ParseString(s string) (*ParsedMatch, error) {
	return p.Parse(strings.NewReader(s))
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineBytes is drained up to its newline and reported as overlong.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	overlong := false
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(buf) > 0 || overlong) {
				return string(buf), overlong, nil
			}
			return "", false, err
		}
		if !overlong {
			if len(buf)+len(chunk) > MaxLineBytes {
				overlong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !more {
			return string(buf), overlong, nil
		}
	}
}

func parseLine(line string) (Event, bool) {
	fields := strings.Fields(line)
	t := match.EventType(fields[0])
	if !IsKnown(t) {
		return Event{}, false
	}
	return Event{Type: t, Params: fields[1:], Raw: line}, true
}
