package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

const (
	pcmChannels = 1
	pcmBitDepth = 16
)

// Encoder assembles a flushed window's raw media into playable containers:
// PCM bytes into a WAV file and a PNG frame sequence into a short MP4.
// Encoding shells out to ffmpeg; audio falls back to a hand-written WAV
// container when ffmpeg is unavailable. Video has no fallback.
type Encoder struct {
	clipsDir   string
	sampleRate int
	frameRate  int

	runCmd func(ctx context.Context, name string, args ...string) error
}

// NewEncoder creates an encoder writing clips under clipsDir.
func NewEncoder(clipsDir string, sampleRate, frameRate int) *Encoder {
	if clipsDir == "" {
		clipsDir = filepath.Join("data", "clips")
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if frameRate <= 0 {
		frameRate = 2
	}

	e := &Encoder{clipsDir: clipsDir, sampleRate: sampleRate, frameRate: frameRate}
	e.runCmd = runExecCommand
	return e
}

// EncodeAudio writes pcm into a WAV clip named for the session, speaker and
// window stamp. The intermediate raw file is removed before returning.
func (e *Encoder) EncodeAudio(ctx context.Context, sessionID, speaker, stamp string, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", fmt.Errorf("encode audio: empty pcm payload")
	}

	sessionDir := filepath.Join(e.clipsDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create session clip directory: %w", err)
	}

	rawPath := filepath.Join(sessionDir, fmt.Sprintf("%s_%s_audio.raw", speaker, stamp))
	wavPath := filepath.Join(sessionDir, fmt.Sprintf("%s_%s_audio.wav", speaker, stamp))

	if err := os.WriteFile(rawPath, pcm, 0o644); err != nil {
		return "", fmt.Errorf("write raw pcm file: %w", err)
	}
	defer func() { _ = os.Remove(rawPath) }()

	err := e.runCmd(ctx, "ffmpeg",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(e.sampleRate),
		"-ac", strconv.Itoa(pcmChannels),
		"-i", rawPath,
		wavPath,
	)
	if err == nil {
		return wavPath, nil
	}

	if err := pcmToWav(pcm, wavPath, e.sampleRate); err != nil {
		return "", fmt.Errorf("encode wav fallback: %w", err)
	}
	return wavPath, nil
}

// EncodeVideo writes frames as a PNG sequence and assembles them into an MP4
// clip. The frame directory is removed before returning.
func (e *Encoder) EncodeVideo(ctx context.Context, sessionID, speaker, stamp string, frames []Frame) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("encode video: no frames in window")
	}

	sessionDir := filepath.Join(e.clipsDir, sessionID)
	frameDir := filepath.Join(sessionDir, fmt.Sprintf("tmp_%s_%s", speaker, stamp))
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return "", fmt.Errorf("create frame directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(frameDir) }()

	for i, frame := range frames {
		framePath := filepath.Join(frameDir, fmt.Sprintf("frame_%04d.png", i))
		if err := os.WriteFile(framePath, frame.Data, 0o644); err != nil {
			return "", fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	mp4Path := filepath.Join(sessionDir, fmt.Sprintf("%s_%s_video.mp4", speaker, stamp))
	err := e.runCmd(ctx, "ffmpeg",
		"-y",
		"-framerate", strconv.Itoa(e.frameRate),
		"-i", filepath.Join(frameDir, "frame_%04d.png"),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		mp4Path,
	)
	if err != nil {
		return "", fmt.Errorf("assemble video clip: %w", err)
	}

	return mp4Path, nil
}

// Remove deletes encode artifacts after downstream processing reaches a
// terminal state. Missing files are not errors.
func (e *Encoder) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.Remove(p)
	}
}

func runExecCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func pcmToWav(pcm []byte, wavPath string, sampleRate int) error {
	out, err := os.OpenFile(wavPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open wav output: %w", err)
	}
	defer func() { _ = out.Close() }()

	header, err := wavHeader(len(pcm), sampleRate, pcmChannels, pcmBitDepth)
	if err != nil {
		return fmt.Errorf("build wav header: %w", err)
	}

	if _, err := out.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := out.Write(pcm); err != nil {
		return fmt.Errorf("write wav payload: %w", err)
	}

	return nil
}

func wavHeader(dataSize, sampleRate, channels, bitDepth int) ([]byte, error) {
	byteRate := sampleRate * channels * bitDepth / 8
	blockAlign := channels * bitDepth / 8
	chunkSize := 36 + dataSize

	buf := bytes.NewBuffer(make([]byte, 0, 44))
	if _, err := buf.WriteString("RIFF"); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(chunkSize)); err != nil {
		return nil, err
	}
	if _, err := buf.WriteString("WAVE"); err != nil {
		return nil, err
	}
	if _, err := buf.WriteString("fmt "); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(16)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(1)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(channels)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(byteRate)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(blockAlign)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(bitDepth)); err != nil {
		return nil, err
	}
	if _, err := buf.WriteString("data"); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(dataSize)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
