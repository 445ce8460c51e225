package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScriptClassifier shells out to an external classifier process. The frame is
// written to a temp file passed via --image; the process prints a JSON result
// on stdout.
type ScriptClassifier struct {
	Cmd  string
	Args []string
	Dir  string // temp dir; os.TempDir() when empty
	log  *zap.Logger
}

func NewScriptClassifier(cmd string, args []string, log *zap.Logger) *ScriptClassifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScriptClassifier{Cmd: cmd, Args: args, log: log}
}

func (s *ScriptClassifier) Classify(ctx context.Context, frame []byte) (Result, error) {
	if len(frame) == 0 {
		return Result{}, ErrEmptyFrame
	}
	if len(frame) > MaxFrameBytes {
		return Result{}, ErrPayloadTooLarge
	}

	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, uuid.New().String()+".img")
	if err := os.WriteFile(path, frame, 0o600); err != nil {
		return Result{}, fmt.Errorf("write frame: %w", err)
	}
	// The temp artifact must not outlive the classification attempt.
	defer func() {
		if err := os.Remove(path); err != nil {
			s.log.Warn("failed to delete temp frame", zap.String("path", path), zap.Error(err))
		}
	}()

	args := append(append([]string(nil), s.Args...), "--image", path)
	cmd := exec.CommandContext(ctx, s.Cmd, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("classifier process: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var res Result
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil {
		return Result{}, fmt.Errorf("parse classifier output: %w", err)
	}
	if strings.TrimSpace(res.Emotion) == "" {
		return Result{}, fmt.Errorf("classifier returned no label")
	}
	return res, nil
}
