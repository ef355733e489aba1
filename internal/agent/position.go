package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/geo"
)

// StaticSource reports one fixed position. A nil position reports
// geo.ErrPositionUnavailable instead.
type StaticSource struct {
	Position *geo.Position
}

func (s StaticSource) Watch(ctx context.Context) (<-chan geo.Position, <-chan error) {
	positions := make(chan geo.Position, 1)
	errs := make(chan error, 1)

	if s.Position == nil {
		errs <- geo.ErrPositionUnavailable
	} else {
		p := *s.Position
		if p.Timestamp.IsZero() {
			p.Timestamp = time.Now().UTC()
		}
		positions <- p
	}

	go func() {
		<-ctx.Done()
		close(positions)
		close(errs)
	}()
	return positions, errs
}

// ReaderSource streams newline-delimited JSON positions, e.g. piped from a
// GPS daemon. Lines that fail to decode are reported as errors.
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) Watch(ctx context.Context) (<-chan geo.Position, <-chan error) {
	positions := make(chan geo.Position)
	errs := make(chan error)

	go func() {
		defer close(positions)
		defer close(errs)

		scanner := bufio.NewScanner(s.R)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var p geo.Position
			if err := json.Unmarshal(line, &p); err != nil {
				select {
				case errs <- fmt.Errorf("invalid position line: %w", err):
					continue
				case <-ctx.Done():
					return
				}
			}
			if p.Timestamp.IsZero() {
				p.Timestamp = time.Now().UTC()
			}

			select {
			case positions <- p:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case errs <- fmt.Errorf("%w: %v", geo.ErrPositionUnavailable, err):
			case <-ctx.Done():
			}
		}
	}()
	return positions, errs
}
