package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/reoring/picoprompt"
	"github.com/reoring/picoprompt/internal/yamlconv"
	"github.com/reoring/picoprompt/picoschema"
	"github.com/reoring/picoprompt/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "schema":
		schemaCmd(os.Args[2:])
	case "render":
		renderCmd(os.Args[2:])
	case "list":
		listCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "picoprompt CLI\n\nUsage:\n  picoprompt schema -f schema.yaml\n  picoprompt render -f prompt.prompt [-data '{...}'] [-model name]\n  picoprompt list -dir ./prompts\n\nNotes:\n  - Pass -f - to read from stdin.")
}

// schemaCmd compiles a Picoschema source to JSON Schema and prints it.
func schemaCmd(args []string) {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	var in string
	var compact bool
	fs.StringVar(&in, "f", "-", "input file, - for stdin")
	fs.BoolVar(&compact, "compact", false, "print compact JSON")
	_ = fs.Parse(args)

	data, err := readInput(in)
	if err != nil {
		fatalf("read input: %v", err)
	}
	decoded, err := yamlconv.Decode(data)
	if err != nil {
		fatalf("parse YAML: %v", err)
	}
	compiled, err := picoschema.Compile(context.Background(), decoded, picoschema.Options{})
	if err != nil {
		fatalf("compile: %v", err)
	}
	printJSON(compiled, compact)
}

// renderCmd renders a prompt file against JSON input data and prints the
// rendered prompt.
func renderCmd(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var in string
	var dataJSON string
	var model string
	var compact bool
	fs.StringVar(&in, "f", "-", "prompt file, - for stdin")
	fs.StringVar(&dataJSON, "data", "", "render data as JSON: {\"input\": {...}, \"messages\": [...]}")
	fs.StringVar(&model, "model", "", "default model name")
	fs.BoolVar(&compact, "compact", false, "print compact JSON")
	_ = fs.Parse(args)

	source, err := readInput(in)
	if err != nil {
		fatalf("read input: %v", err)
	}
	var data picoprompt.DataArgument
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			fatalf("parse -data: %v", err)
		}
	}

	engine := picoprompt.New(picoprompt.Options{DefaultModel: model})
	rendered, err := engine.Render(context.Background(), string(source), &data, nil)
	if err != nil {
		fatalf("render: %v", err)
	}
	printJSON(rendered, compact)
}

// listCmd prints the prompts and partials found in a store directory.
func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var dir string
	fs.StringVar(&dir, "dir", ".", "prompt directory")
	_ = fs.Parse(args)

	s, err := store.NewDirStore(dir)
	if err != nil {
		fatalf("open store: %v", err)
	}
	ctx := context.Background()
	prompts, _, err := s.List(ctx, nil)
	if err != nil {
		fatalf("list prompts: %v", err)
	}
	partials, _, err := s.ListPartials(ctx, nil)
	if err != nil {
		fatalf("list partials: %v", err)
	}
	for _, p := range prompts {
		name := p.Name
		if p.Variant != "" {
			name += "." + p.Variant
		}
		fmt.Printf("%s\t%s\n", name, p.Version)
	}
	for _, p := range partials {
		name := "_" + p.Name
		if p.Variant != "" {
			name += "." + p.Variant
		}
		fmt.Printf("%s\t%s\n", name, p.Version)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any, compact bool) {
	var b []byte
	var err error
	if compact {
		b, err = json.Marshal(v)
	} else {
		b, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		fatalf("encode JSON: %v", err)
	}
	fmt.Println(string(b))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
