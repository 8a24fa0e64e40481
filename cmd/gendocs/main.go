// Command gendocs generates documentation for the svnscm CLI.
//
// Usage: gendocs <markdown|man|completions> [output dir]
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/bolasblack/svnscm/internal/cli"
)

type generator struct {
	defaultDir string
	run        func(cmd *cobra.Command, dir string) error
}

var generators = map[string]generator{
	"markdown":    {defaultDir: "docs/commands", run: generateMarkdown},
	"man":         {defaultDir: "out/man", run: generateMan},
	"completions": {defaultDir: "out/completions", run: generateCompletions},
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: gendocs <markdown|man|completions> [output dir]")
		os.Exit(1)
	}

	gen, ok := generators[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", os.Args[1])
		os.Exit(1)
	}
	dir := gen.defaultDir
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cmd := cli.GetRootCmd()
	cmd.DisableAutoGenTag = true
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create %s: %v\n", dir, err)
		os.Exit(1)
	}
	if err := gen.run(cmd, dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s in %s/\n", os.Args[1], dir)
}

func generateMarkdown(cmd *cobra.Command, dir string) error {
	now := time.Now().Format("2006-01-02")
	// Front matter for static site generators
	prepend := func(filename string) string {
		base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		return fmt.Sprintf("---\ntitle: %q\ndate: %s\n---\n\n", strings.ReplaceAll(base, "_", " "), now)
	}
	link := func(name string) string {
		return "./" + strings.TrimSuffix(name, filepath.Ext(name)) + ".md"
	}
	return doc.GenMarkdownTreeCustom(cmd, dir, prepend, link)
}

func generateMan(cmd *cobra.Command, dir string) error {
	return doc.GenManTree(cmd, &doc.GenManHeader{
		Title:   "SVNSCM",
		Section: "1",
		Source:  "svnscm " + cli.Version,
		Manual:  "svnscm Manual",
	}, dir)
}

func generateCompletions(cmd *cobra.Command, dir string) error {
	shells := []struct {
		file string
		gen  func(f *os.File) error
	}{
		{"svnscm.bash", func(f *os.File) error { return cmd.GenBashCompletionV2(f, true) }},
		{"svnscm.zsh", func(f *os.File) error { return cmd.GenZshCompletion(f) }},
		{"svnscm.fish", func(f *os.File) error { return cmd.GenFishCompletion(f, true) }},
	}
	for _, sh := range shells {
		if err := writeFile(filepath.Join(dir, sh.file), sh.gen); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, gen func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := gen(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to generate %s: %w", path, err)
	}
	return f.Close()
}
