// Command tortilla builds and inspects Tortilla container files from the
// shell. It is a thin wrapper over the writer and reader packages,
// intended as a worked example rather than a general-purpose tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tacofoundation/tortilla/reader"
	"github.com/tacofoundation/tortilla/sample"
	"github.com/tacofoundation/tortilla/sizeutil"
	"github.com/tacofoundation/tortilla/table"
	"github.com/tacofoundation/tortilla/writer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tortilla build -out FILE -format FORMAT PATH...")
	fmt.Fprintln(os.Stderr, "       tortilla inspect PATH")
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("out", "out.tortilla", "output path")
	format := fs.String("format", "BYTES", "data_format identifier")
	chunkSize := fs.String("chunk-size", "0", "per-file size budget, e.g. 512MB (0 = unbounded)")
	quiet := fs.Bool("quiet", false, "suppress the progress bar")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("tortilla build: no input files given")
	}

	budget, err := sizeutil.ParseSize(*chunkSize)
	if err != nil {
		return err
	}

	items := make([]writer.Item, 0, fs.NArg())
	for i, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		items = append(items, writer.Item{
			SourcePath: path,
			Length:     info.Size(),
			Metadata:   sample.Metadata{ID: fmt.Sprintf("item-%d", i)},
		})
	}

	opts := []writer.Option{writer.WithChunkSizeBytes(budget)}
	if *quiet {
		opts = append(opts, writer.WithQuiet())
	}

	results, err := writer.Write(context.Background(), *out, *format, items, opts...)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Printf("wrote %s (%s)\n", r.Path, sizeutil.FormatSize(uint64(r.TotalSize)))
	}

	return nil
}

func runInspect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("tortilla inspect: expected exactly one path")
	}

	tbl, err := reader.ReadLocal(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%d items\n", tbl.NumRows())
	for _, name := range tbl.ColumnNames() {
		fmt.Println(" -", name)
	}

	idCol := tbl.Column(table.ColID)
	offsetCol := tbl.Column(table.ColOffset)
	lengthCol := tbl.Column(table.ColLength)
	for i := 0; i < tbl.NumRows(); i++ {
		fmt.Printf("%s\toffset=%d\tlength=%d\n", idCol.String(i), offsetCol.Int64(i), lengthCol.Int64(i))
	}

	return nil
}
