// Package photo implements spec §4.H: validating an uploaded JPEG,
// persisting the original, rendering a watermarked down-sized derivative,
// and giving the static server enough to resolve a requested filename back
// to its visibility rule. Resizing is grounded on the x/image/draw usage in
// the pack's fazt-sh-fazt image service; everything else is new composition
// over the database's PhotoPair shape.
package photo

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // watermark asset may be a PNG
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/db"
)

const (
	boundingBox      = 1000
	jpegQuality      = 80
	watermarkPadding = 4
	// MaxUploadBytes is spec §4.H's 10 MiB cap; exported so the HTTP layer
	// can reject oversized bodies before they're read into memory.
	MaxUploadBytes = 10 << 20
)

// Config carries the three filesystem locations the pipeline touches.
type Config struct {
	OriginalDir   string
	ConvertedDir  string
	WatermarkPath string
}

// Store holds the pipeline's configuration and a lazily-loaded, cached
// watermark image shared across every conversion.
type Store struct {
	cfg Config

	mu        sync.Mutex
	watermark image.Image
}

func New(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Variant distinguishes the original from the watermarked derivative, the
// lowest bit packed into every stem (spec §3 Photo).
type Variant int

const (
	VariantOriginal Variant = iota
	VariantConverted
)

func personBit(p db.Person) byte {
	if p == db.PersonJack {
		return 1
	}
	return 0
}

// stem derives a 32-character lowercase hex name from a 16-byte seed, with
// the seed's last byte's low two bits overwritten to carry the person and
// variant: this is the "32-character stem" spec §4.H fixes as the
// invariant, reconciling the two filename shapes the distilled source
// shows. The original and converted names of one upload share every byte
// except the variant bit.
func stem(seed [16]byte, person db.Person, variant Variant) string {
	b := seed
	var variantBit byte
	if variant == VariantConverted {
		variantBit = 1
	}
	b[15] = (b[15] &^ 0b11) | (personBit(person) << 1) | variantBit
	return hex.EncodeToString(b[:])
}

// Resolve parses a requested filename (as the static server receives it on
// the URL) back into its person and variant, returning ok=false for
// anything malformed — the static server treats that as a 404.
func Resolve(name string) (person db.Person, variant Variant, ok bool) {
	if !strings.HasSuffix(name, ".jpg") {
		return "", 0, false
	}
	s := strings.TrimSuffix(name, ".jpg")
	if len(s) != 32 {
		return "", 0, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return "", 0, false
	}
	last := raw[15]
	p := db.PersonDave
	if (last>>1)&1 == 1 {
		p = db.PersonJack
	}
	v := VariantOriginal
	if last&1 == 1 {
		v = VariantConverted
	}
	return p, v, true
}

// Path returns the on-disk location of name for the given variant.
func (s *Store) Path(variant Variant, name string) string {
	if variant == VariantConverted {
		return filepath.Join(s.cfg.ConvertedDir, name)
	}
	return filepath.Join(s.cfg.OriginalDir, name)
}

func validContentType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return true
	default:
		return false
	}
}

// personFromStem validates the uploaded part's filename stem is the single
// character "J" or "D" and returns the person it names.
func personFromStem(filenameStem string) (db.Person, bool) {
	switch filenameStem {
	case "J":
		return db.PersonJack, true
	case "D":
		return db.PersonDave, true
	default:
		return "", false
	}
}

// Upload implements spec §4.H's upload pipeline: validate, write the
// original, convert (resize + watermark + re-encode), write the converted
// derivative, and return both filenames.
func (s *Store) Upload(contentType, filenameStem string, body []byte) (person db.Person, original, converted string, err error) {
	if !validContentType(contentType) {
		return "", "", "", apierror.InvalidValue("invalid content type")
	}
	person, ok := personFromStem(filenameStem)
	if !ok {
		return "", "", "", apierror.InvalidValue("invalid filename")
	}
	if len(body) == 0 {
		return "", "", "", apierror.InvalidValue("empty photo")
	}
	if len(body) > MaxUploadBytes {
		return "", "", "", apierror.BodySize()
	}

	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return "", "", "", apierror.Internal("generate photo id")
	}
	original = stem(seed, person, VariantOriginal) + ".jpg"
	converted = stem(seed, person, VariantConverted) + ".jpg"

	originalPath := s.Path(VariantOriginal, original)
	if err := os.WriteFile(originalPath, body, 0o644); err != nil {
		return "", "", "", apierror.IO(err)
	}

	convertedBytes, err := s.convert(body)
	if err != nil {
		_ = os.Remove(originalPath)
		return "", "", "", err
	}
	convertedPath := s.Path(VariantConverted, converted)
	if err := os.WriteFile(convertedPath, convertedBytes, 0o644); err != nil {
		_ = os.Remove(originalPath)
		return "", "", "", apierror.IO(err)
	}

	return person, original, converted, nil
}

// Delete removes both the original and converted files of a pair, matching
// spec §4.H's "unknown image" 400 when either is absent.
func (s *Store) Delete(original, converted string) error {
	origErr := os.Remove(s.Path(VariantOriginal, original))
	convErr := os.Remove(s.Path(VariantConverted, converted))
	if origErr != nil || convErr != nil {
		return apierror.InvalidValue("unknown image")
	}
	return nil
}

// convert decodes, resizes to a 1000x1000 bounding box with nearest-neighbour
// sampling (matching the source), overlays the watermark bottom-right with
// 4px padding, and re-encodes at quality 80.
func (s *Store) convert(body []byte) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, apierror.Image(err)
	}
	resized := resizeToBoundingBox(src, boundingBox)

	watermark, err := s.loadWatermark()
	if err != nil {
		return nil, apierror.Image(fmt.Errorf("load watermark: %w", err))
	}
	overlayWatermark(resized, watermark)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, apierror.Image(err)
	}
	return buf.Bytes(), nil
}

func resizeToBoundingBox(src image.Image, maxDim int) *image.RGBA {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	scale := math.Min(float64(maxDim)/float64(srcW), float64(maxDim)/float64(srcH))
	dstW := int(math.Round(float64(srcW) * scale))
	dstH := int(math.Round(float64(srcH) * scale))
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func overlayWatermark(dst *image.RGBA, watermark image.Image) {
	wb := watermark.Bounds()
	dstBounds := dst.Bounds()
	x := dstBounds.Dx() - wb.Dx() - watermarkPadding
	y := dstBounds.Dy() - wb.Dy() - watermarkPadding
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	target := image.Rect(x, y, x+wb.Dx(), y+wb.Dy())
	draw.Draw(dst, target, watermark, wb.Min, draw.Over)
}

func (s *Store) loadWatermark() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watermark != nil {
		return s.watermark, nil
	}
	f, err := os.Open(s.cfg.WatermarkPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	s.watermark = img
	return img, nil
}
