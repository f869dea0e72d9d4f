// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize maps source-native payloads into types.DataRecord.
//
// Each source has its own Normalizer that decodes the nested payload into
// a typed view with mapstructure. Missing keys at any depth decode to zero
// values, and so do sections of the wrong shape: those come back as a
// *FieldError next to a usable record. A record is rejected with a
// KindMalformedRecord error only when it has no usable identifier.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/internal/source"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Normalizer converts raw records from one source. A non-nil record
// returned with a *FieldError is valid; the listed fields are empty.
type Normalizer interface {
	Source() types.SourceID
	Normalize(raw source.RawRecord) (*types.DataRecord, error)
}

// Registry dispatches raw records to the normalizer for their source.
type Registry struct {
	byID map[types.SourceID]Normalizer
	log  logger.Logger
}

// NewRegistry returns a registry holding the given normalizers.
func NewRegistry(ns ...Normalizer) *Registry {
	r := &Registry{byID: make(map[types.SourceID]Normalizer, len(ns)), log: logger.NewNop()}
	for _, n := range ns {
		r.byID[n.Source()] = n
	}
	return r
}

// Default returns a registry with the trials, literature, and regulatory
// normalizers.
func Default() *Registry {
	return NewRegistry(Trials{}, Literature{}, Regulatory{})
}

// WithLog sets the logger that receives field decode failures.
func (r *Registry) WithLog(log logger.Logger) *Registry {
	if log != nil {
		r.log = log
	}
	return r
}

// Normalize converts raw using the normalizer registered for raw.Source.
// Field errors on an otherwise valid record are logged and dropped.
func (r *Registry) Normalize(raw source.RawRecord) (*types.DataRecord, error) {
	n, ok := r.byID[raw.Source]
	if !ok {
		return nil, types.MalformedRecord(raw.Source, "no normalizer for source %q", raw.Source)
	}
	if raw.Payload == nil {
		return nil, types.MalformedRecord(raw.Source, "empty payload")
	}
	rec, err := n.Normalize(raw)
	var fe *FieldError
	if rec != nil && errors.As(err, &fe) {
		r.log.Debug("record fields not decoded",
			logger.String("source", string(raw.Source)),
			logger.String("record", rec.NativeID),
			logger.Strings("fields", fe.Fields),
		)
		return rec, nil
	}
	return rec, err
}

// FieldError lists payload fields that could not be decoded into a
// record's typed view.
type FieldError struct {
	Source types.SourceID
	Fields []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %d field(s) not decoded: %s", e.Source, len(e.Fields), strings.Join(e.Fields, "; "))
}

// partial pairs rec with the error left by decode, if any.
func partial(rec *types.DataRecord, decodeErr error) (*types.DataRecord, error) {
	if decodeErr == nil {
		return rec, nil
	}
	fe := &FieldError{Source: rec.Source}
	var me *mapstructure.Error
	if errors.As(decodeErr, &me) {
		fe.Fields = me.Errors
	} else {
		fe.Fields = []string{decodeErr.Error()}
	}
	return rec, fe
}

// missingID rejects a record without an identifier, keeping the decode
// failure that likely caused it.
func missingID(src types.SourceID, decodeErr error, msg string) error {
	if decodeErr != nil {
		return types.MalformedRecord(src, "%s: %v", msg, decodeErr)
	}
	return types.MalformedRecord(src, "%s", msg)
}

// decode fills out from a nested payload map. Scalars are converted
// leniently (numbers to strings, single values to lists). Fields that
// fail are left zero and reported in a *mapstructure.Error while the
// rest of out is still filled.
func decode(payload map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(payload)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"20060102",
	"2006",
	time.RFC3339,
}

// parseDate accepts the date shapes the sources use and returns nil for
// anything else.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

var yearRe = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)

// parseDateParts builds a date from separate year, month, and day
// strings. The month may be a number or an English abbreviation. When the
// year is missing, the first four-digit year in fallback is used.
func parseDateParts(year, month, day, fallback string) *time.Time {
	year = strings.TrimSpace(year)
	if year == "" {
		year = yearRe.FindString(fallback)
	}
	if year == "" {
		return nil
	}
	s := year
	if m := monthNumber(month); m != "" {
		s += "-" + m
		if d := strings.TrimSpace(day); d != "" {
			if len(d) == 1 {
				d = "0" + d
			}
			s += "-" + d
		}
	}
	if t := parseDate(s); t != nil {
		return t
	}
	return parseDate(year)
}

func monthNumber(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	if t, err := time.Parse("Jan", m); err == nil {
		return fmt.Sprintf("%02d", int(t.Month()))
	}
	if t, err := time.Parse("January", m); err == nil {
		return fmt.Sprintf("%02d", int(t.Month()))
	}
	if t, err := time.Parse("1", m); err == nil {
		return fmt.Sprintf("%02d", int(t.Month()))
	}
	return ""
}

// first returns the first non-blank element of s.
func first(s []string) string {
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// nonNil returns s, or an empty slice when s is nil, so missing lists
// serialize as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
