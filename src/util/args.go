package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options defines the decompiler configuration assembled from the command line.
type Options struct {
	Src         string // Path to input LLVM IR file (.ll or .bc).
	Out         string // Path to output C file. Empty means stdout.
	Threads     int    // Worker thread count for per-function lifting.
	Verbose     bool   // Set true if the decompiler should log statistical data to stdout.
	Includes    bool   // Emit #include prologue for recognised standard library functions.
	NoFuncCasts bool   // Strip casts around function pointer calls.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64 // Maximum threads allowed executing in parallel.
const appVersion = "llvm2c 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments.
func ParseArgs() (Options, error) {
	opt := Options{Threads: 1}
	if len(os.Args) < 2 {
		return opt, fmt.Errorf("expected path to an LLVM IR file")
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			// Help and usage.
			printHelp()
			os.Exit(0)
		case "-includes", "--includes":
			// Emit include prologue for recognised standard library functions.
			opt.Includes = true
		case "-no-func-casts", "--no-func-casts":
			// Strip function pointer call casts.
			opt.NoFuncCasts = true
		case "-o", "-t":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected argument for flag %s, got new flag %s", args[i1], args[i1+1])
			}
			switch args[i1] {
			case "-o":
				// Output file.
				opt.Out = args[i1+1]
			case "-t":
				// Thread count.
				if t, err := strconv.Atoi(args[i1+1]); err == nil {
					if t > 0 && t <= maxThreads {
						opt.Threads = t
					} else {
						return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
					}
				} else {
					return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
				}
			}
			i1++
		case "-v", "--v", "-version", "--version":
			// Application version.
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			// Verbose mode.
			opt.Verbose = true
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			if len(opt.Src) > 0 {
				return opt, fmt.Errorf("multiple input files given: %s and %s", opt.Src, args[i1])
			}
			opt.Src = args[i1]
		}
	}
	if len(opt.Src) == 0 {
		return opt, fmt.Errorf("expected path to an LLVM IR file")
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "usage: llvm2c <input.ll> [flags]")
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output C file. Defaults to stdout.")
	_, _ = fmt.Fprintf(w, "-t\tNumber of threads lifting functions in parallel. Must be in range [1, %d].\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-includes\tEmit #include prologue for recognised C standard library functions.")
	_, _ = fmt.Fprintln(w, "-no-func-casts\tStrip casts around function pointer calls.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print decompiler statistics to stdout.")
	_ = w.Flush()
}
