package transcode

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	os.Exit(m.Run())
}

// writeWAV encodes interleaved integer samples into a temporary WAV file.
func writeWAV(t *testing.T, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestDecodeFileMono16Bit(t *testing.T) {
	path := writeWAV(t, 8000, 16, 1, []int{0, 16384, -16384, 32767, -32768})

	data, err := LoadWAV(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, data.SampleRate)
	assert.Equal(t, 1, data.Channels)
	assert.Equal(t, 16, data.BitDepth)
	assert.Equal(t, path, data.Source)
	require.Len(t, data.PCM, 5)
	assert.Equal(t, []float64{0, 0.5, -0.5, 32767.0 / 32768, -1}, data.PCM)
	assert.Equal(t, 625*time.Microsecond, data.Duration)
}

func TestDecodeFileStereoDownmix(t *testing.T) {
	// left, right interleaved
	path := writeWAV(t, 44100, 16, 2, []int{16384, 0, -16384, 16384, 8192, 8192})

	first, err := NewDecoder(nil).DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Channels)
	assert.Equal(t, []float64{0.5, -0.5, 0.25}, first.PCM)

	avg, err := NewDecoder(&DecoderConfig{Mono: true, MonoMode: MonoAverage}).DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0, 0.25}, avg.PCM)

	raw, err := NewDecoder(&DecoderConfig{}).DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Channels)
	assert.Equal(t, 3, raw.Frames())
	assert.Len(t, raw.PCM, 6)
}

func TestDecodeFileMaxDuration(t *testing.T) {
	path := writeWAV(t, 1000, 16, 1, make([]int, 1000))

	data, err := NewDecoder(&DecoderConfig{Mono: true, MaxDuration: 250 * time.Millisecond}).DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, data.PCM, 250)
	assert.Equal(t, 250*time.Millisecond, data.Duration)
}

func TestDecodeReaderRejectsGarbage(t *testing.T) {
	_, err := NewDecoder(nil).DecodeReader(bytes.NewReader([]byte("definitely not RIFF data")))
	assert.True(t, errors.Is(err, ErrInvalidWAV))
}

func TestDecodeWAVFromMemory(t *testing.T) {
	raw, err := os.ReadFile(writeWAV(t, 16000, 24, 1, []int{1 << 22, -(1 << 22)}))
	require.NoError(t, err)

	data, err := DecodeWAV(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 24, data.BitDepth)
	assert.Equal(t, []float64{0.5, -0.5}, data.PCM)
	assert.Empty(t, data.Source)
}

func TestDecodeEmptyWAV(t *testing.T) {
	_, err := LoadWAV(writeWAV(t, 8000, 16, 1, nil))
	assert.Error(t, err)
}

func TestDecodeFileMissing(t *testing.T) {
	_, err := LoadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDownmix(t *testing.T) {
	in := []float64{1, 3, 5, 7, 9}
	assert.Equal(t, []float64{1, 5}, Downmix(in, 2, MonoFirstChannel))
	assert.Equal(t, []float64{2, 6}, Downmix(in, 2, MonoAverage))

	mono := Downmix(in, 1, MonoAverage)
	assert.Equal(t, in, mono)
	mono[0] = 42
	assert.Equal(t, 1.0, in[0])
}

func TestParseMonoMode(t *testing.T) {
	m, err := ParseMonoMode("")
	require.NoError(t, err)
	assert.Equal(t, MonoFirstChannel, m)

	m, err = ParseMonoMode("Average")
	require.NoError(t, err)
	assert.Equal(t, MonoAverage, m)
	assert.Equal(t, "average", m.String())

	_, err = ParseMonoMode("surround")
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}
