package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/me/msbkit/pkg/msb"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// render writes v in the selected --format. text prints the human form.
func render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch flagFormat {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", flagFormat)
	}
}

func msbOptions() msb.Options {
	return msb.Options{Logger: logger, Debug: cfg.Debug}
}

func loadProgram(path string) (*msb.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	p, err := msb.ParseProgram(data, msbOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// stagedProgram is a serialized program waiting next to its destination.
type stagedProgram struct {
	tmp, dest string
}

// stageProgram writes the updated program to a temp file beside out, or
// beside path. Nothing is replaced until commit.
func stageProgram(p *msb.Program, path, out string) (*stagedProgram, error) {
	if out == "" {
		out = path
	}
	data, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize program: %w", err)
	}
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("write program: %w", err)
	}
	return &stagedProgram{tmp: tmp, dest: out}, nil
}

func (s *stagedProgram) commit() error {
	if err := os.Rename(s.tmp, s.dest); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("rename program: %w", err)
	}
	logger.Debug("program written", "path", s.dest)
	return nil
}

func (s *stagedProgram) discard() {
	os.Remove(s.tmp)
}

// selectMSBs returns every MSB, or only the one with the given checksum.
func selectMSBs(p *msb.Program, checksum string) ([]*msb.MSB, error) {
	if checksum == "" {
		return p.MSBs(), nil
	}
	m, err := p.Find(checksum)
	if err != nil {
		return nil, err
	}
	return []*msb.MSB{m}, nil
}
