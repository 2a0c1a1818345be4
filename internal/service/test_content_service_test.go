package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"ielts_exam_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorageProvider struct {
	uploaded []byte
	object   string
}

func (p *fakeStorageProvider) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	p.uploaded = data
	p.object = filename
	return "/uploads/" + filename, nil
}

func (p *fakeStorageProvider) Delete(ctx context.Context, filename string) error { return nil }

func (p *fakeStorageProvider) GetURL(filename string) string { return filename }

func TestStoreAudioAcceptsSniffedAudio(t *testing.T) {
	provider := &fakeStorageProvider{}
	svc := &TestContentService{Storage: &StorageService{Provider: provider}}

	// RIFF/WAVE header sniffs as audio/wave; pad past the sniff window so
	// the prepended head and the remaining stream both reach storage
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 600)...)
	url, err := svc.storeAudio(context.Background(), "t1", &AudioUpload{
		Reader:   bytes.NewReader(wav),
		Size:     int64(len(wav)),
		Filename: "clip.wav",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Contains(t, provider.object, "audio/t1/")
	assert.Equal(t, wav, provider.uploaded)
}

func TestStoreAudioRejectsNonAudioContent(t *testing.T) {
	provider := &fakeStorageProvider{}
	svc := &TestContentService{Storage: &StorageService{Provider: provider}}

	// audio extension, html body
	_, err := svc.storeAudio(context.Background(), "t1", &AudioUpload{
		Reader:   strings.NewReader("<html><body>not audio</body></html>"),
		Filename: "fake.mp3",
	})

	require.Error(t, err)
	assert.True(t, util.IsValidationError(err))
	assert.Nil(t, provider.uploaded)
}

func TestStoreAudioRejectsBadExtension(t *testing.T) {
	svc := &TestContentService{Storage: &StorageService{Provider: &fakeStorageProvider{}}}

	_, err := svc.storeAudio(context.Background(), "t1", &AudioUpload{
		Reader:   strings.NewReader("RIFF1234WAVE"),
		Filename: "clip.pdf",
	})

	assert.True(t, util.IsValidationError(err))
}
