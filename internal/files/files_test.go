package files

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casedesk/pkg/platform/sentinel"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "uploads/c1/abc-form.pdf", objectKey("uploads", "c1", "abc", "form.pdf"))
	assert.Equal(t, "c1/abc-passwd", objectKey("", "c1", "abc", "../../etc/passwd"))
}

func TestMemoryTransport(t *testing.T) {
	m := NewMemory()
	ref, err := m.Put(context.Background(), Object{CaseID: "c1", Name: "form.pdf", Body: strings.NewReader("pdf-bytes")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "mem://c1/"))

	r, err := m.Get(ref)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	_, err = m.Get("mem://missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

type fakePutter struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Transport(t *testing.T) {
	t.Run("returns bucket reference", func(t *testing.T) {
		p := &fakePutter{}
		tr := NewS3(p, "docs", "cases")
		ref, err := tr.Put(context.Background(), Object{
			CaseID:      "c1",
			Name:        "id.png",
			ContentType: "image/png",
			Size:        4,
			Body:        strings.NewReader("png!"),
		})
		require.NoError(t, err)
		require.NotNil(t, p.input)
		assert.Equal(t, "docs", aws.ToString(p.input.Bucket))
		assert.True(t, strings.HasPrefix(aws.ToString(p.input.Key), "cases/c1/"))
		assert.Equal(t, "image/png", aws.ToString(p.input.ContentType))
		assert.Equal(t, "s3://docs/"+aws.ToString(p.input.Key), ref)
	})

	t.Run("wraps client errors", func(t *testing.T) {
		boom := errors.New("access denied")
		_, err := NewS3(&fakePutter{err: boom}, "docs", "").Put(context.Background(), Object{
			CaseID: "c1", Name: "a.pdf", Body: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, boom)
	})
}
