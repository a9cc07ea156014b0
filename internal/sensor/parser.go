package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bluepond-io/aquamon/internal/model"
)

// Parse failure kinds. Callers match with errors.Is.
var (
	ErrMalformedStructure  = errors.New("malformed structure")
	ErrUnexpectedKey       = errors.New("unexpected key")
	ErrInvalidNumericValue = errors.New("invalid numeric value")
)

// expectedKeys is the fixed field order emitted by the sensor firmware.
var expectedKeys = [4]string{"pH", "temp", "water", "tds"}

// Parser converts raw sensor lines into readings. The zero value is not
// usable; construct with New.
type Parser struct {
	now func() time.Time
}

func New() *Parser {
	return &Parser{now: time.Now}
}

// NewWithClock builds a parser with a fixed clock source, used by tests
// to pin the captured-at timestamp.
func NewWithClock(now func() time.Time) *Parser {
	return &Parser{now: now}
}

// Parse decodes a line of the form "pH:6.20,temp:23.20,water:medium,tds:652".
// The grammar is rigid: exactly four comma-separated key:value fields, keys
// matched case-sensitively in firmware order. The water level is taken
// verbatim so newer firmware can introduce level names without a parser
// change. CapturedAt is assigned from the parser clock on success.
func (p *Parser) Parse(raw string) (model.Reading, error) {
	fields := strings.Split(raw, ",")
	if len(fields) != len(expectedKeys) {
		return model.Reading{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedStructure, len(expectedKeys), len(fields))
	}

	// Structure is checked across all fields before any key is compared,
	// so a line that is both misshapen and miskeyed reads as malformed.
	keys := make([]string, len(expectedKeys))
	values := make([]string, len(expectedKeys))
	for i, field := range fields {
		key, value, found := strings.Cut(field, ":")
		if !found || key == "" || value == "" {
			return model.Reading{}, fmt.Errorf("%w: field %q is not key:value", ErrMalformedStructure, field)
		}
		keys[i] = key
		values[i] = value
	}

	for i, key := range keys {
		if key != expectedKeys[i] {
			return model.Reading{}, fmt.Errorf("%w: got %q at position %d, want %q", ErrUnexpectedKey, key, i, expectedKeys[i])
		}
	}

	ph, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return model.Reading{}, fmt.Errorf("%w: pH %q", ErrInvalidNumericValue, values[0])
	}

	temperature, err := strconv.ParseFloat(values[1], 64)
	if err != nil {
		return model.Reading{}, fmt.Errorf("%w: temp %q", ErrInvalidNumericValue, values[1])
	}

	tds, err := strconv.Atoi(values[3])
	if err != nil {
		return model.Reading{}, fmt.Errorf("%w: tds %q", ErrInvalidNumericValue, values[3])
	}

	return model.NewReading(ph, temperature, values[2], tds, p.now()), nil
}
