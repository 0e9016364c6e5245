package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const mimeDICOM = "application/dicom"

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrEmptyImage       = errors.New("empty image")
	ErrInvalidDataURI   = errors.New("invalid data uri")
)

// MaxEdge is the longest side, in pixels, of an image handed to the model.
// Larger images are scaled down.
const MaxEdge = 1600

// MaxPixels bounds the decoded size of an upload. The byte limit alone does
// not, since a small compressed file can declare huge dimensions.
const MaxPixels = 50_000_000

var acceptedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is an intake result ready to be attached to a draft.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI encodes the image as a base64 data URI.
func (i *Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Intake validates raw upload bytes. Browser image formats pass through,
// scaled down when larger than MaxEdge; DICOM objects are rendered to PNG
// from their first frame. An empty mimeType is sniffed from the content.
func Intake(data []byte, mimeType string) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	mimeType = normalizeMIME(mimeType)
	if isDICOM(data, mimeType) {
		img, err := decodeDICOM(data)
		if err != nil {
			return nil, err
		}
		return encodePNG(fit(img))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(http.DetectContentType(data))
	}
	if !acceptedTypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	if cfg.Width <= MaxEdge && cfg.Height <= MaxEdge {
		return &Image{MIMEType: mimeType, Data: data}, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return encodePNG(fit(img))
}

// ParseDataURI splits a base64 data URI into payload and MIME type.
func ParseDataURI(uri string) (payload string, mimeType string, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", ErrInvalidDataURI
	}
	mimeType, ok = strings.CutSuffix(meta, ";base64")
	if !ok || mimeType == "" {
		return "", "", ErrInvalidDataURI
	}
	return payload, mimeType, nil
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "image/jpg" {
		return "image/jpeg"
	}
	return m
}

func isDICOM(data []byte, mimeType string) bool {
	if mimeType == mimeDICOM {
		return true
	}
	return len(data) >= 132 && string(data[128:132]) == "DICM"
}

func decodeDICOM(data []byte) (image.Image, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dicom: %v", ErrUnsupportedImage, err)
	}
	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("%w: dicom without pixel data", ErrUnsupportedImage)
	}
	if err := checkDICOMSize(ds); err != nil {
		return nil, err
	}
	info := dicom.MustGetPixelDataInfo(elem.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("%w: dicom without frames", ErrUnsupportedImage)
	}
	return frameImage(info.Frames[0])
}

func checkPixels(w, h int) error {
	if w <= 0 || h <= 0 || int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d pixels", ErrUnsupportedImage, w, h)
	}
	return nil
}

// checkDICOMSize applies the pixel budget to the declared Rows and Columns
// before any frame is rendered.
func checkDICOMSize(ds dicom.Dataset) error {
	dim := func(t tag.Tag) int {
		el, err := ds.FindElementByTag(t)
		if err != nil {
			return 0
		}
		v, ok := el.Value.GetValue().([]int)
		if !ok || len(v) == 0 {
			return 0
		}
		return v[0]
	}
	return checkPixels(dim(tag.Columns), dim(tag.Rows))
}

func frameImage(f *frame.Frame) (image.Image, error) {
	img, err := f.GetImage()
	if err != nil {
		return nil, fmt.Errorf("%w: dicom frame: %v", ErrUnsupportedImage, err)
	}
	if g16, ok := img.(*image.Gray16); ok {
		return stretch(g16), nil
	}
	return img, nil
}

// stretch maps the used range of a 16-bit grayscale frame onto 8 bits, so
// 12-bit CT/MR data is not rendered almost black.
func stretch(src *image.Gray16) *image.Gray {
	b := src.Bounds()
	lo, hi := uint16(0xffff), uint16(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := src.Gray16At(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	dst := image.NewGray(b)
	span := uint32(hi) - uint32(lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8
			if span > 0 {
				v = uint8((uint32(src.Gray16At(x, y).Y-lo) * 255) / span)
			}
			dst.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return dst
}

func fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= MaxEdge && h <= MaxEdge {
		return img
	}
	if w >= h {
		h = h * MaxEdge / w
		w = MaxEdge
	} else {
		w = w * MaxEdge / h
		h = MaxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodePNG(img image.Image) (*Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &Image{MIMEType: "image/png", Data: buf.Bytes()}, nil
}
