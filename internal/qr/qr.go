// Package qr renders QR codes for short URLs.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// Encoder renders square PNG QR codes at medium error correction.
type Encoder struct {
	Size int
}

// NewEncoder creates an encoder producing size x size images.
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Encoder{Size: size}
}

// PNG encodes content as a PNG image.
func (e *Encoder) PNG(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, e.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURL encodes content as a data:image/png;base64 URL.
func (e *Encoder) DataURL(content string) (string, error) {
	png, err := e.PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
