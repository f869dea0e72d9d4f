// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// timestampLayout is the file-name timestamp format.
const timestampLayout = "20060102_150405"

// FileSink writes run artifacts to a directory:
//
//	raw_data_<name>_<ts>.yaml
//	analyses_<name>_<ts>.yaml
//	competitive_landscape_<name>_<ts>.md
//	competitive_landscape_<name>_<ts>.html (when HTML is set)
type FileSink struct {
	Dir  string
	HTML bool
	Log  logger.Logger

	// Now names and dates the files. Tests replace it.
	Now func() time.Time
}

// NewFileSink returns a sink for cfg.
func NewFileSink(cfg types.OutputConfig, log logger.Logger) *FileSink {
	if log == nil {
		log = logger.NewNop()
	}
	return &FileSink{Dir: cfg.Dir, HTML: cfg.HTML, Log: log, Now: time.Now}
}

// Save writes every artifact and returns their paths.
func (s *FileSink) Save(ctx context.Context, a types.Artifacts) (types.SavedArtifacts, error) {
	var saved types.SavedArtifacts
	if err := ctx.Err(); err != nil {
		return saved, err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return saved, fmt.Errorf("creating output directory: %w", err)
	}

	now := s.Now()
	stem := SafeName(a.Request.Topic) + "_" + now.Format(timestampLayout)

	var err error
	if saved.RawData, err = s.writeYAML("raw_data_"+stem+".yaml", a.Records); err != nil {
		return saved, err
	}
	if saved.Analyses, err = s.writeYAML("analyses_"+stem+".yaml", a.Analyses); err != nil {
		return saved, err
	}

	doc := Document(a, now)
	saved.Summary = filepath.Join(s.Dir, "competitive_landscape_"+stem+".md")
	if err := os.WriteFile(saved.Summary, []byte(doc), 0o644); err != nil {
		return saved, fmt.Errorf("writing summary: %w", err)
	}

	if s.HTML {
		page, err := RenderHTML("Competitive Landscape: "+a.Request.Topic, doc)
		if err != nil {
			return saved, err
		}
		saved.HTML = filepath.Join(s.Dir, "competitive_landscape_"+stem+".html")
		if err := os.WriteFile(saved.HTML, []byte(page), 0o644); err != nil {
			return saved, fmt.Errorf("writing HTML report: %w", err)
		}
	}

	s.Log.Info("saved run artifacts",
		logger.String("dir", s.Dir),
		logger.String("summary", saved.Summary),
		logger.Int("records", len(a.Records)),
	)
	return saved, nil
}

func (s *FileSink) writeYAML(name string, v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", name, err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

// maxSafeName caps the topic part of file names, in bytes, so that the
// longest prefix, timestamp and extension stay under the 255-byte limit.
const maxSafeName = 100

// SafeName keeps letters, digits, spaces, '-' and '_' up to maxSafeName
// bytes, trims trailing spaces, and replaces spaces with underscores. An
// empty result becomes "research".
func SafeName(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '-' && r != '_' {
			continue
		}
		if b.Len()+utf8.RuneLen(r) > maxSafeName {
			break
		}
		b.WriteRune(r)
	}
	name := strings.ReplaceAll(strings.TrimRight(b.String(), " "), " ", "_")
	if name == "" {
		return "research"
	}
	return name
}

// Saver is implemented by every sink.
type Saver interface {
	Save(ctx context.Context, a types.Artifacts) (types.SavedArtifacts, error)
}

// MultiSink saves to every sink in order and merges the reported paths.
type MultiSink []Saver

// Save calls every sink even after a failure and joins the errors.
func (m MultiSink) Save(ctx context.Context, a types.Artifacts) (types.SavedArtifacts, error) {
	var out types.SavedArtifacts
	var errs []error
	for _, s := range m {
		got, err := s.Save(ctx, a)
		if err != nil {
			errs = append(errs, err)
		}
		merge(&out, got)
	}
	return out, errors.Join(errs...)
}

func merge(dst *types.SavedArtifacts, src types.SavedArtifacts) {
	if src.RawData != "" {
		dst.RawData = src.RawData
	}
	if src.Analyses != "" {
		dst.Analyses = src.Analyses
	}
	if src.Summary != "" {
		dst.Summary = src.Summary
	}
	if src.HTML != "" {
		dst.HTML = src.HTML
	}
	if src.ArchiveID != 0 {
		dst.ArchiveID = src.ArchiveID
	}
}
