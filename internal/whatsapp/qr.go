package whatsapp

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 512

// WriteQR saves the pairing code as a PNG at path
func WriteQR(code, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create QR directory: %w", err)
	}
	if err := qrcode.WriteFile(code, qrcode.Medium, qrSize, path); err != nil {
		return fmt.Errorf("could not save QR code PNG: %w", err)
	}
	return nil
}

// GenerateQRDataURL renders the pairing code as a PNG data URL
func GenerateQRDataURL(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
