package editor

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/five82/quill/internal/wp"
)

// preparedImage is an image ready for upload.
type preparedImage struct {
	Filename    string
	ContentType string
	Data        []byte
	Resized     bool
	Width       int
	Height      int
}

// sniffContentType reports the MIME type of data from its leading bytes.
func sniffContentType(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}

// prepareImage reads path, rejects anything but JPEG or PNG, and shrinks the
// image to fit maxW x maxH when both bounds are positive and exceeded.
func prepareImage(path string, maxW, maxH int) (*preparedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	ct := sniffContentType(data)
	if err := wp.CheckImageType(ct); err != nil {
		return nil, err
	}

	out := &preparedImage{
		Filename:    filepath.Base(path),
		ContentType: ct,
		Data:        data,
	}
	if maxW <= 0 || maxH <= 0 {
		return out, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	out.Width, out.Height = bounds.Dx(), bounds.Dy()
	if out.Width <= maxW && out.Height <= maxH {
		return out, nil
	}

	resized := imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	encoded, err := encode(resized, ct)
	if err != nil {
		return nil, err
	}
	out.Data = encoded
	out.Resized = true
	out.Width, out.Height = resized.Bounds().Dx(), resized.Bounds().Dy()
	return out, nil
}

func encode(img image.Image, contentType string) ([]byte, error) {
	format := imaging.JPEG
	opts := []imaging.EncodeOption{imaging.JPEGQuality(90)}
	if contentType == "image/png" {
		format = imaging.PNG
		opts = nil
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
