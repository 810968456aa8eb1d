package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/txtparrot/parrot/tts"
)

// resampleQuality is the beep interpolation quality (1 to 64).
const resampleQuality = 4

// DecodeWAV converts WAV data of any rate and channel count to canonical PCM.
func DecodeWAV(data []byte) (*tts.Audio, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()
	return render(streamer, format.SampleRate, 1)
}

// DecodeMP3 converts MP3 data to canonical PCM.
func DecodeMP3(data []byte) (*tts.Audio, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()
	return render(streamer, format.SampleRate, 1)
}

// FromPCM converts 16-bit mono PCM at sampleRate to canonical PCM.
func FromPCM(pcm []byte, sampleRate int) (*tts.Audio, error) {
	if len(pcm) < tts.BytesPerSample {
		return nil, tts.ErrEmptyAudio
	}
	if sampleRate == 0 || sampleRate == tts.SampleRate {
		return tts.NewAudio(pcm[:len(pcm)-len(pcm)%tts.BytesPerSample]), nil
	}
	return render(newPCMStreamer(pcm), beep.SampleRate(sampleRate), 1)
}

// ChangeRate speeds audio up (rate > 1) or slows it down by resampling.
// Pitch changes with the rate.
func ChangeRate(audio *tts.Audio, rate float64) (*tts.Audio, error) {
	if rate == 1 || audio == nil {
		return audio, nil
	}
	if !tts.ValidRate(rate) {
		return nil, tts.ErrInvalidRate
	}
	return render(newPCMStreamer(audio.Data), tts.SampleRate, rate)
}

// EncodeWAV wraps canonical PCM in a WAV container.
func EncodeWAV(w io.WriteSeeker, audio *tts.Audio) error {
	format := beep.Format{
		SampleRate:  tts.SampleRate,
		NumChannels: tts.Channels,
		Precision:   tts.BytesPerSample,
	}
	return wav.Encode(w, newPCMStreamer(audio.Data), format)
}

// render drains s, resampling from rate to the canonical rate while
// applying the speed ratio, and mixes down to 16-bit mono.
func render(s beep.Streamer, rate beep.SampleRate, speed float64) (*tts.Audio, error) {
	ratio := float64(rate) / float64(tts.SampleRate) * speed
	if math.Abs(ratio-1) > 1e-9 {
		s = beep.ResampleRatio(resampleQuality, ratio, s)
	}

	var out bytes.Buffer
	buf := make([][2]float64, 4096)
	sample := make([]byte, 2)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			mono := (frame[0] + frame[1]) / 2
			mono = math.Max(-1, math.Min(1, mono))
			binary.LittleEndian.PutUint16(sample, uint16(int16(mono*math.MaxInt16)))
			out.Write(sample)
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return nil, tts.ErrEmptyAudio
	}
	return tts.NewAudio(out.Bytes()), nil
}

// pcmStreamer streams canonical PCM as beep frames.
type pcmStreamer struct {
	data []byte
	pos  int
}

func newPCMStreamer(data []byte) *pcmStreamer {
	return &pcmStreamer{data: data}
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if p.pos+tts.BytesPerSample > len(p.data) {
		return 0, false
	}
	n := 0
	for n < len(samples) && p.pos+tts.BytesPerSample <= len(p.data) {
		v := float64(int16(binary.LittleEndian.Uint16(p.data[p.pos:]))) / math.MaxInt16
		samples[n] = [2]float64{v, v}
		p.pos += tts.BytesPerSample
		n++
	}
	return n, true
}

func (p *pcmStreamer) Err() error { return nil }

// Sniff guesses the container of encoded audio from its magic bytes.
func Sniff(data []byte) (string, error) {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav", nil
	case len(data) >= 3 && string(data[:3]) == "ID3",
		len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3", nil
	}
	return "", errors.New("unrecognized audio format")
}

// Decode converts WAV or MP3 data to canonical PCM.
func Decode(data []byte) (*tts.Audio, error) {
	kind, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if kind == "wav" {
		return DecodeWAV(data)
	}
	return DecodeMP3(data)
}
