// Command dmsbackup exports or imports a dms data file as a zstd-
// compressed stream. The target engine must not be open while either
// subcommand runs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dom999/emeralddb-go/pkg/backup"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "export":
		runExport(os.Args[2:])
	case "import":
		runImport(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dmsbackup export -data <path> -out <path> [-level N]")
	fmt.Fprintln(os.Stderr, "       dmsbackup import -in <path> -data <path>")
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dataPath := fs.String("data", "", "path to the live .dms file")
	outPath := fs.String("out", "", "path to write the compressed backup")
	level := fs.Int("level", 3, "zstd compression level")
	fs.Parse(args)

	if *dataPath == "" || *outPath == "" {
		usage()
		os.Exit(2)
	}

	out, err := os.OpenFile(*outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		fail("create backup file: %v", err)
	}
	defer out.Close()

	if err := backup.Export(*dataPath, out, *level); err != nil {
		fail("export: %v", err)
	}
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	inPath := fs.String("in", "", "path to the compressed backup")
	dataPath := fs.String("data", "", "path to write the restored .dms file")
	fs.Parse(args)

	if *inPath == "" || *dataPath == "" {
		usage()
		os.Exit(2)
	}

	in, err := os.Open(*inPath)
	if err != nil {
		fail("open backup file: %v", err)
	}
	defer in.Close()

	if err := backup.Import(in, *dataPath); err != nil {
		fail("import: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
