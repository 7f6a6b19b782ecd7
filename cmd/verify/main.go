// Package main provides the verify command: check the signed metadata block of a markdown export.
package main

import (
	"flag"
	"fmt"
	"os"

	"notiontable/pkg/metadata"
)

func main() {
	inputPath := flag.String("input", "", "Path to a markdown export (e.g., tasks.md)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Println("Usage: verify -input <path>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	contentBytes, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error reading file: %v\n", err)
		os.Exit(1)
	}

	content := string(contentBytes)
	fmt.Printf("📂 Reading: %s (%d bytes)\n", *inputPath, len(content))

	meta, _ := metadata.Extract(content)
	if meta != nil {
		fmt.Printf("ℹ️  Database: %s\n", meta.DatabaseID)
		fmt.Printf("ℹ️  Run ID: %s\n", meta.RunID)
		fmt.Printf("ℹ️  Rows: %d\n", meta.Rows)
		fmt.Printf("ℹ️  Exported At: %s\n", meta.ExportedAt.Format("2006-01-02 15:04:05 MST"))
	}

	if _, err := metadata.Verify(content); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Verification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Export is unmodified")
}
