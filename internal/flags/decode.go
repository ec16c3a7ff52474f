package flags

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// AssetSize is the edge length of every cached flag.
const AssetSize = 16

// decodeScaled decodes an image in any registered format and scales it to
// AssetSize x AssetSize.
func decodeScaled(data []byte) (image.Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("decoding %s image: empty bounds", format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, AssetSize, AssetSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}
