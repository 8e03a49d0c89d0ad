package inputs

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Kind classifies a media payload.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	}
	return "unknown"
}

var videoExts = map[string]bool{".mp4": true, ".webm": true, ".ogg": true, ".ogv": true, ".mov": true, ".mkv": true}

// Sniff classifies data by its magic bytes.
func Sniff(data []byte) Kind {
	switch {
	case filetype.IsImage(data):
		return KindImage
	case filetype.IsVideo(data):
		return KindVideo
	}
	return KindUnknown
}

// KindOfPath classifies a file by extension, falling back to its header.
func KindOfPath(path string) Kind {
	if videoExts[strings.ToLower(filepath.Ext(path))] {
		return KindVideo
	}
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown
	}
	defer f.Close()
	head := make([]byte, 261)
	n, _ := f.Read(head)
	return Sniff(head[:n])
}

// DataURLBytes extracts the bytes of a base64 "data:" URL.
func DataURLBytes(payload string) ([]byte, error) {
	rest, ok := strings.CutPrefix(payload, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data URL", ErrDecode)
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: data URL is not base64", ErrDecode)
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return raw, nil
}

// DecodeBytes decodes an encoded still image (png, jpeg, gif, bmp, tiff or
// webp).
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if kind, _ := filetype.Match(data); kind != filetype.Unknown && !filetype.IsImage(data) {
		return nil, fmt.Errorf("%w: payload is %s, not an image", ErrDecode, kind.MIME.Value)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// DecodePayload decodes an image option value. Data URLs are decoded in
// memory; any other string is treated as a file path.
func DecodePayload(payload string) (image.Image, error) {
	if strings.HasPrefix(payload, "data:") {
		raw, err := DataURLBytes(payload)
		if err != nil {
			return nil, err
		}
		return DecodeBytes(raw)
	}
	data, err := os.ReadFile(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return DecodeBytes(data)
}

// EncodeDataURL wraps encoded image bytes in a data URL, sniffing the MIME
// type.
func EncodeDataURL(data []byte) string {
	mime := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
