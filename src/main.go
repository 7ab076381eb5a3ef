package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/tomsik68/llvm2c/src/core"
	ll "github.com/tomsik68/llvm2c/src/ir/llvm"
	"github.com/tomsik68/llvm2c/src/util"
	"github.com/tomsik68/llvm2c/src/writer"
)

// run loads the input IR module and executes the decompiler stages.
// Behaviour is defined by the util.Options structure.
func run(opt util.Options) error {
	// Parse the input module through the LLVM runtime.
	m, err := ll.ParseModule(opt)
	if err != nil {
		return fmt.Errorf("could not load module: %s", err)
	}

	// Mark single-predecessor blocks for inlining.
	m.MarkInline()

	// Lift the module into the C expression tree.
	p, err := core.NewProgram(opt, m)
	if err != nil {
		return err
	}

	if opt.Verbose {
		fmt.Printf("translated %d functions, %d globals, %d structs\n",
			len(p.Definitions), len(p.GlobalVars), len(p.Structs()))
	}

	// Render the program as C source.
	w := util.NewWriter()
	writer.New(&w, p).WriteProgram()
	w.Close()
	return nil
}

func main() {
	// Parse command line arguments.
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %s\n", err)
		os.Exit(1)
	}

	// Initiate output writer.
	wg := sync.WaitGroup{}
	if len(opt.Out) > 0 {
		// Attempt to open output file. Create new file if necessary.
		f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}(f)
		util.ListenWrite(opt, f, &wg)
	} else {
		// Write results to stdout.
		util.ListenWrite(opt, nil, &wg)
	}
	defer util.Close()

	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	// Wait for emission to complete.
	wg.Wait()
}
