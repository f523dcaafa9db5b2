package omrsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/omr"
)

var errNoCommand = errors.New("omr script command is not configured")

// ScriptScanner runs an external OMR program:
//
//	<command...> --mode <answer|grade> --image <path> --layout <path>
//
// which must print a JSON object {answers, total, warnings, studentNumber, debugImage} on stdout.
type ScriptScanner struct {
	command    []string
	layoutPath string
	tmpDir     string
}

var _ omr.Scanner = (*ScriptScanner)(nil)

// NewScriptScanner writes `layout` to a temporary file when layoutPath is empty. That file has the shape
//
//	{"regions": {"student_number": {x, y, w, h, rows, cols}, "answers": {x, y, w, h, rows, cols}}}
//
// with x, y, w, h as fractions of the sheet size; a script reading other region names needs its own layoutPath.
func NewScriptScanner(command []string, layoutPath string, layout omr.Layout) (*ScriptScanner, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, errNoCommand
	}
	tmpDir, err := os.MkdirTemp("", "omr-")
	if err != nil {
		return nil, errors.Wrap(err, "creating temp dir")
	}
	if layoutPath == "" {
		data, err := json.Marshal(layout)
		if err != nil {
			return nil, errors.Wrap(err, "encoding layout")
		}
		layoutPath = filepath.Join(tmpDir, "layout.json")
		if err = os.WriteFile(layoutPath, data, 0o600); err != nil {
			return nil, errors.Wrap(err, "writing layout")
		}
	}
	return &ScriptScanner{command: command, layoutPath: layoutPath, tmpDir: tmpDir}, nil
}

// Close removes the temporary files of the scanner.
func (s *ScriptScanner) Close() error {
	return os.RemoveAll(s.tmpDir)
}

type scriptOutput struct {
	Answers       []string `json:"answers"`
	Total         int      `json:"total"`
	Warnings      []string `json:"warnings"`
	StudentNumber string   `json:"studentNumber"`
	DebugImage    string   `json:"debugImage"`
}

func (s *ScriptScanner) Scan(ctx context.Context, mode omr.Mode, image []byte) (omr.ScanResult, error) {
	f, err := os.CreateTemp(s.tmpDir, "sheet-*.img")
	if err != nil {
		return omr.ScanResult{}, errors.Wrap(err, "creating temp image")
	}
	defer os.Remove(f.Name())
	if _, err = f.Write(image); err != nil {
		_ = f.Close()
		return omr.ScanResult{}, errors.Wrap(err, "writing temp image")
	}
	if err = f.Close(); err != nil {
		return omr.ScanResult{}, errors.Wrap(err, "writing temp image")
	}

	args := append(append([]string(nil), s.command[1:]...),
		"--mode", string(mode), "--image", f.Name(), "--layout", s.layoutPath)
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "OMR process failed"
		}
		return omr.ScanResult{}, errors.Wrap(err, msg)
	}

	var out scriptOutput
	if err = json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return omr.ScanResult{}, errors.Wrap(err, "decoding OMR output")
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return omr.ScanResult{
		Answers:       out.Answers,
		StudentNumber: out.StudentNumber,
		Total:         out.Total,
		Warnings:      out.Warnings,
		DebugImage:    out.DebugImage,
	}, nil
}
