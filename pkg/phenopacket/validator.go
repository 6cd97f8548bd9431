package phenopacket

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
)

const (
	JarPlaceholder  = "{jar}"
	PathPlaceholder = "{path}"
)

var DefaultCommand = []string{"java", "-jar", JarPlaceholder, "validate", "-i", PathPlaceholder}

// Result is the validation outcome of one document file.
type Result struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Validator checks documents with the phenopacket-tools CLI. Command is an
// argv template; {jar} and {path} are substituted per call.
type Validator struct {
	Jar     string
	Command []string
}

func NewValidator(jar string, command []string) *Validator {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &Validator{Jar: jar, Command: command}
}

func (v *Validator) argv(path string) ([]string, error) {
	if len(v.Command) == 0 {
		return nil, errors.New("validator command is empty")
	}
	jar := v.Jar
	if jar != "" {
		if abs, err := filepath.Abs(jar); err == nil {
			jar = abs
		}
	}
	argv := make([]string, len(v.Command))
	for i, arg := range v.Command {
		arg = strings.ReplaceAll(arg, JarPlaceholder, jar)
		argv[i] = strings.ReplaceAll(arg, PathPlaceholder, path)
	}
	return argv, nil
}

// ValidateFile runs the validator on one file. A file is valid when the tool
// exits cleanly and reports no ERROR lines; the message carries the tool
// output otherwise.
func (v *Validator) ValidateFile(ctx context.Context, path string) (bool, string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err.Error()
	}
	argv, err := v.argv(abs)
	if err != nil {
		return false, err.Error()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return false, output
	}
	if issues := errorLines(out); len(issues) > 0 {
		return false, strings.Join(issues, "\n")
	}
	return true, ""
}

// Validate checks a single file or every *.json file of a directory.
func (v *Validator) Validate(ctx context.Context, path string) ([]Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var files []string
	if info.IsDir() {
		if files, err = JSONFiles(path); err != nil {
			return nil, err
		}
	} else {
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil, fmt.Errorf("%s is not a json file", path)
		}
		files = []string{path}
	}

	results := make([]Result, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		ok, msg := v.ValidateFile(ctx, f)
		if !ok {
			logger.WithField("file", f).Warn("phenopacket failed validation")
		}
		results = append(results, Result{Path: f, Valid: ok, Message: msg})
	}
	return results, nil
}

// Invalid returns the failing results.
func Invalid(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Valid {
			out = append(out, r)
		}
	}
	return out
}

func errorLines(out []byte) []string {
	var lines []string
	s := bufio.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if strings.HasPrefix(line, "ERROR") {
			lines = append(lines, line)
		}
	}
	return lines
}
