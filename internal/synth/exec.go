package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd        []string
	sampleRate int
	mu         sync.Mutex
}

type execRequest struct {
	Text           string `json:"text"`
	ReferencePath  string `json:"reference_path"`
	Language       string `json:"language"`
	SplitSentences bool   `json:"split_sentences"`
	SampleRate     int    `json:"sample_rate"`
}

type execResponse struct {
	PCMBase64  string `json:"pcm_base64"`
	SampleRate int    `json:"sample_rate"`
	Error      string `json:"error,omitempty"`
}

// NewExecSynth runs an external engine process per request. The process
// reads one JSON request on stdin and writes one JSON response with
// base64 16-bit little-endian PCM on stdout.
func NewExecSynth(command string, sampleRate int) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synth command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("synth command empty")
	}
	return &execSynth{cmd: args, sampleRate: sampleRate}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) ([]float64, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := json.Marshal(execRequest{
		Text:           req.Text,
		ReferencePath:  req.ReferencePath,
		Language:       req.Language,
		SplitSentences: req.SplitSentences,
		SampleRate:     e.sampleRate,
	})
	if err != nil {
		return nil, 0, err
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, 0, fmt.Errorf("run synth engine: %w: %s", err, msg)
		}
		return nil, 0, fmt.Errorf("run synth engine: %w", err)
	}

	var resp execResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, 0, fmt.Errorf("decode synth response: %w", err)
	}
	if resp.Error != "" {
		return nil, 0, fmt.Errorf("synth engine: %s", resp.Error)
	}
	pcm, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
	if err != nil {
		return nil, 0, fmt.Errorf("decode synth pcm: %w", err)
	}

	rate := resp.SampleRate
	if rate <= 0 {
		rate = e.sampleRate
	}
	return pcm16ToFloats(pcm), rate, nil
}

func pcm16ToFloats(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		out[i] = float64(s) / 32768.0
	}
	return out
}
