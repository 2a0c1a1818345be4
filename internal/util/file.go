package util

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

const (
	MimeAudio       = "audio/"
	MimeImage       = "image/"
	MimeOctetStream = "application/octet-stream"
)

var AllowedAudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "audio/", "image/"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

func IsAudio(mimeType string) bool {
	// mp3 uploads are often sniffed as octet-stream, let the extension check catch those
	return strings.HasPrefix(mimeType, MimeAudio) || mimeType == MimeOctetStream
}

func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeImage)
}

func HasAllowedExtension(filename string, allowed []string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range allowed {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
