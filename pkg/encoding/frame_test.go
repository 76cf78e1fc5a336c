package encoding

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Text string `json:"text"`
}

func (n *note) Serialize() ([]byte, error)    { return MarshalJSON(n) }
func (n *note) Deserialize(data []byte) error { return json.Unmarshal(data, n) }

func TestFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("abc")))
	assert.Equal(t, []byte{0, 0, 0, 3, 'a', 'b', 'c'}, buf.Bytes())
}

func TestReadSequentialFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &note{Text: "one"}))
	require.NoError(t, Write(&buf, &note{Text: "two <b>"}))

	var got note
	require.NoError(t, Read(&buf, 0, &got))
	assert.Equal(t, "one", got.Text)
	require.NoError(t, Read(&buf, 0, &got))
	assert.Equal(t, "two <b>", got.Text)

	_, err := ReadFrame(&buf, 0)
	assert.Equal(t, io.EOF, err)
}

func TestFrameLimits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, bytes.Repeat([]byte{'x'}, 100)))
	_, err := ReadFrame(&buf, 10)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	assert.ErrorIs(t, WriteFrame(&buf, nil), ErrEmptyFrame)

	_, err = ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 'a'}), 0)
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestMarshalJSONKeepsMarkup(t *testing.T) {
	out, err := MarshalJSON(note{Text: "<a>"})
	require.NoError(t, err)
	assert.Equal(t, `{"text":"<a>"}`, string(out))
}
