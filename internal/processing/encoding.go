package processing

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"

	"NewsIngestor/internal/config"
)

// EncodingResult reports what the detector concluded about raw feed bytes.
type EncodingResult struct {
	Encoding   string
	Confidence float64
}

// Decoder turns untrusted raw bytes into text. Detection runs over a
// bounded prefix so cost does not grow with input size, the detected
// charset must be on the allow-list and meet the confidence floor, and any
// failure degrades to UTF-8 decoding with replacement instead of erroring.
type Decoder struct {
	allowed       map[string]struct{}
	confidenceMin float64
	sampleSize    int
	detector      *chardet.Detector
	logger        *slog.Logger
}

// NewDecoder builds a Decoder from encoding configuration.
func NewDecoder(cfg config.EncodingConfig, logger *slog.Logger) *Decoder {
	allowed := make(map[string]struct{}, len(cfg.AllowedEncodings))
	for _, enc := range cfg.AllowedEncodings {
		allowed[strings.ToLower(enc)] = struct{}{}
	}

	return &Decoder{
		allowed:       allowed,
		confidenceMin: cfg.ConfidenceMin,
		sampleSize:    cfg.SampleSize,
		detector:      chardet.NewTextDetector(),
		logger:        logger,
	}
}

// Detect identifies the charset of content, enforcing the allow-list and
// confidence floor.
func (d *Decoder) Detect(content []byte) (EncodingResult, error) {
	sample := content
	if len(sample) > d.sampleSize {
		sample = sample[:d.sampleSize]
	}

	best, err := d.detector.DetectBest(sample)
	if err != nil || best == nil || best.Charset == "" {
		return EncodingResult{}, fmt.Errorf("could not detect encoding: %v", err)
	}

	result := EncodingResult{
		Encoding:   strings.ToLower(best.Charset),
		Confidence: float64(best.Confidence) / 100,
	}

	if _, ok := d.allowed[result.Encoding]; !ok {
		d.warn("disallowed encoding detected", "encoding", result.Encoding, "confidence", result.Confidence)
		return EncodingResult{}, fmt.Errorf("encoding %q is not allowed", result.Encoding)
	}

	if result.Confidence < d.confidenceMin {
		d.warn("low confidence encoding detection", "encoding", result.Encoding, "confidence", result.Confidence)
		return EncodingResult{}, fmt.Errorf("encoding detection confidence %.2f too low", result.Confidence)
	}

	return result, nil
}

// DecodeBytes converts content to text. It never fails: when detection or
// decoding breaks down it falls back to UTF-8 with invalid sequences
// replaced, so a bad charset can never abort the pipeline.
func (d *Decoder) DecodeBytes(content []byte) string {
	result, err := d.Detect(content)
	if err != nil {
		d.warn("encoding detection failed, using UTF-8 fallback", "error", err)
		return decodeUTF8Lossy(content)
	}

	enc, err := ianaindex.IANA.Encoding(result.Encoding)
	if err != nil || enc == nil {
		d.warn("no decoder for detected encoding, using UTF-8 fallback", "encoding", result.Encoding)
		return decodeUTF8Lossy(content)
	}

	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		d.warn("decode failed, using UTF-8 fallback", "encoding", result.Encoding, "error", err)
		return decodeUTF8Lossy(content)
	}

	return string(decoded)
}

func decodeUTF8Lossy(content []byte) string {
	return strings.ToValidUTF8(string(content), "�")
}

func (d *Decoder) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

// NormalizeUnicode applies NFKC so visually and semantically equivalent
// character sequences compare equal downstream.
func NormalizeUnicode(text string) string {
	return norm.NFKC.String(text)
}
