package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts  []*s3.PutObjectInput
	data  map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	body, _ := io.ReadAll(params.Body)
	f.data[*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.data[*params.Key]
	if !ok {
		return nil, &notFoundError{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(newBytesReader(body))}, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "NoSuchKey" }

func newBytesReader(b []byte) io.Reader { return &byteReader{b: b} }

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

func TestS3StoreSaveThenRead(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3Store(fake, "artifacts", "gateway/", "https://gateway.example/images")

	location, err := store.Save(context.Background(), "renders", "a.png", []byte("pixels"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "s3://artifacts/gateway/renders/a.png", location)

	stream, err := store.Read(context.Background(), "renders", "a.png")
	require.NoError(t, err)
	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "pixels", string(body))
}

func TestS3StoreSaveRejectsEmptyBytes(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3Store(fake, "artifacts", "", "https://gateway.example/images")

	location, err := store.Save(context.Background(), "renders", "empty.png", nil, "image/png")
	require.NoError(t, err)
	require.Empty(t, location)
	require.Empty(t, fake.puts)
}
