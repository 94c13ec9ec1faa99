package dataset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// DecodeGray decodes an image, converts it to grayscale and resizes it to
// width x height.
func DecodeGray(r io.Reader, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("decode: invalid size %dx%d", width, height)
	}
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("decode: empty image")
	}
	return Resize(src, width, height), nil
}

// Resize draws src onto a new width x height grayscale image.
func Resize(src image.Image, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// LoadImage reads the image at path. See DecodeGray.
func LoadImage(path string, width, height int) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, err := DecodeGray(f, width, height)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ReadLabel parses the integer class index stored in path. Only the first
// whitespace separated token is read.
func ReadLabel(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read label: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("parse label %s: empty file", path)
	}
	label, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("parse label %s: %w", path, err)
	}
	if label < 0 {
		return 0, fmt.Errorf("parse label %s: negative label %d", path, label)
	}
	return label, nil
}
