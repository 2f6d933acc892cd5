// Command depscheck walks every package in the module and enforces the
// layering rules between the engine, the transport, and the CLI.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "tankdown/client"

// rule forbids the named import prefixes from every package its scope
// predicate selects.
type rule struct {
	name      string
	applies   func(importPath string) bool
	forbidden []string
}

var rules = []rule{
	{
		// The engine is transport-agnostic: channel and CLI code depend
		// on it, never the other way around.
		name:      "engine-imports-no-transport",
		applies:   func(p string) bool { return p == modulePath },
		forbidden: []string{modulePath + "/internal/net", modulePath + "/internal/cli"},
	},
	{
		// The CLI is the outermost layer; nothing under internal/ may
		// reach back into it.
		name: "internal-imports-no-cli",
		applies: func(p string) bool {
			return strings.HasPrefix(p, modulePath+"/internal/") &&
				!strings.HasPrefix(p, modulePath+"/internal/cli")
		},
		forbidden: []string{modulePath + "/internal/cli"},
	},
}

type packageInfo struct {
	ImportPath string
	Imports    []string
}

func main() {
	violations, err := check()
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func check() ([]string, error) {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode package info: %w", err)
		}
		violations = append(violations, evaluate(pkg)...)
	}
	return violations, nil
}

func evaluate(pkg packageInfo) []string {
	var violations []string
	for _, r := range rules {
		if !r.applies(pkg.ImportPath) {
			continue
		}
		for _, imp := range pkg.Imports {
			for _, prefix := range r.forbidden {
				if strings.HasPrefix(imp, prefix) {
					violations = append(violations,
						fmt.Sprintf("%s: %s -> %s", r.name, pkg.ImportPath, imp))
				}
			}
		}
	}
	return violations
}
