package assembly

import (
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// Sniffer detects the content type of a stream from its leading bytes
type Sniffer interface {
	DetectType(r io.Reader) (string, error)
}

type MimeSniffer struct{}

func NewMimeSniffer() MimeSniffer {
	return MimeSniffer{}
}

func (MimeSniffer) DetectType(r io.Reader) (string, error) {
	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	return baseMimeType(detected.String()), nil
}
