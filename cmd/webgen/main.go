package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

func main() {
	srcDir := flag.String("src", "./web/src", "Frontend source directory")
	outDir := flag.String("out", "./web/dist", "Output directory for bundled assets")
	minify := flag.Bool("minify", false, "Minify the bundle")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{filepath.Join(*srcDir, "main.ts")},
		Bundle:            true,
		Outfile:           filepath.Join(*outDir, "app.js"),
		Write:             true,
		MinifyWhitespace:  *minify,
		MinifyIdentifiers: *minify,
		MinifySyntax:      *minify,
		Target:            api.ES2020,
	})

	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning.Text)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e.Text)
		}
		os.Exit(1)
	}

	html, err := os.ReadFile(filepath.Join(*srcDir, "index.html"))
	if err != nil {
		fmt.Printf("Failed to read index.html: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "index.html"), html, 0644); err != nil {
		fmt.Printf("Failed to write index.html: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bundled dashboard to %s\n", *outDir)
}
