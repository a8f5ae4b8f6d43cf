// Command rxmath is the host driver for the rxmath engine: it compiles
// one pattern and matches it against numbers (unary mode) or lines of
// text, with built-in test harnesses for the classic regex-math
// challenges.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/coregx/rxmath"
)

type options struct {
	patternFile  string
	numChar      string
	rangeSpec    string
	testName     string
	testFalse    bool
	showMatch    int
	showSet      bool
	invert       bool
	seqSpec      string
	seqUpTo      string
	countAll     bool
	optLevel     int
	extensions   string
	pcre         bool
	freeSpacing  bool
	npcg         bool
	ecc          bool
	neo          bool
	qa           bool
	trace        int
	verbose      bool
	lineBuffered bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, `Use the "--help" option to see full information on command-line options.`)
		os.Exit(255)
	}
}

func run() error {
	var opt options
	fs := pflag.NewFlagSet("rxmath", pflag.ContinueOnError)
	fs.StringVarP(&opt.patternFile, "file", "f", "", "read pattern from FILE")
	fs.StringVarP(&opt.numChar, "num", "n", "", "numerical (unary) mode using CHAR as the repeated character")
	fs.StringVarP(&opt.rangeSpec, "test-range", "t", "", "test the range NUM0..NUM1 (numerical mode)")
	fs.StringVar(&opt.testName, "test", "", "run a built-in test (use --test=list for the list)")
	fs.BoolVar(&opt.testFalse, "test-false", false, "also probe false positives for the selected test")
	fs.IntVarP(&opt.showMatch, "show-match", "o", 0, "show only the matched part (capture N; 0 = whole match)")
	fs.BoolVarP(&opt.invert, "invert-match", "v", false, "show non-matching inputs instead")
	fs.StringVarP(&opt.seqSpec, "seq", "q", "", "show the NUM0..NUM1-th matching numbers (zero-indexed)")
	fs.StringVarP(&opt.seqUpTo, "seq-up-to", "Q", "", "show the first NUM matching numbers")
	fs.BoolVarP(&opt.countAll, "count-possible", "X", false, "count possible matches instead of reporting them")
	fs.IntVarP(&opt.optLevel, "optimization", "O", 2, "optimization level, 0 to 2")
	fs.StringVarP(&opt.extensions, "extensions", "x", "", "enable extensions (ml,li,ag,brg,pq,cnd,lcnd,rs,pbr,v,all)")
	fs.BoolVar(&opt.pcre, "pcre", false, "emulate PCRE as closely as currently possible")
	fs.BoolVar(&opt.freeSpacing, "fs", false, "free-spacing mode")
	fs.BoolVar(&opt.npcg, "npcg", true, "non-participating groups match empty (ECMAScript)")
	fs.BoolVar(&opt.ecc, "ecc", true, "allow empty character classes")
	fs.BoolVar(&opt.neo, "neo", true, "exit optional groups on empty match")
	fs.BoolVar(&opt.qa, "qa", true, "allow quantifiers on assertions")
	fs.CountVar(&opt.trace, "trace", "print a debug trace (give twice for a stack dump)")
	fs.BoolVar(&opt.verbose, "verbose", false, "print matches and non-matches with their inputs")
	fs.BoolVar(&opt.lineBuffered, "line-buffered", false, "flush output after each line")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		return err
	}

	if opt.testName == "list" || (opt.testName == "" && fs.Changed("test")) {
		printTestList()
		return nil
	}

	opt.showSet = fs.Changed("show-match")

	cfg := buildConfig(&opt)

	pattern, err := loadPattern(fs.Args(), &opt)
	if err != nil {
		return err
	}

	if opt.testName != "" {
		return runBuiltinTest(&opt, cfg, pattern)
	}
	if pattern == "" {
		return fmt.Errorf("rxmath: no pattern given")
	}

	re, err := rxmath.CompileWithConfig(pattern, cfg)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if opt.numChar != "" {
		return runNumerical(&opt, re, out)
	}
	return runStringMode(&opt, re, out)
}

func buildConfig(opt *options) rxmath.Config {
	var cfg rxmath.Config
	if opt.pcre {
		cfg = rxmath.PCREConfig()
	} else {
		cfg = rxmath.DefaultConfig()
		cfg.Flags.FreeSpacing = opt.freeSpacing
		cfg.Flags.EmulateECMANPCGs = opt.npcg
		cfg.Flags.AllowEmptyClasses = opt.ecc
		cfg.Flags.NoEmptyOptional = opt.neo
		cfg.Flags.AllowQuantifiersOnAssertions = opt.qa
	}
	for _, ext := range strings.Split(opt.extensions, ",") {
		switch strings.TrimSpace(ext) {
		case "ml":
			cfg.Flags.AllowMolecularLookaround = true
		case "li":
			cfg.Flags.AllowLookinto = true
		case "ag":
			cfg.Flags.AllowAtomicGroups = true
		case "brg":
			cfg.Flags.AllowBranchResetGroups = true
		case "pq":
			cfg.Flags.AllowPossessiveQuantifiers = true
		case "cnd":
			cfg.Flags.AllowConditionals = true
		case "lcnd":
			cfg.Flags.AllowLookaroundConditionals = true
		case "rs":
			cfg.Flags.AllowResetStart = true
		case "pbr":
			cfg.Flags.PersistentBackrefs = true
		case "v":
			cfg.Flags.AllowVerbs = true
		case "all":
			cfg.Flags = cfg.Flags.AllExtensions()
		case "":
		}
	}
	cfg.OptimizationLevel = opt.optLevel
	cfg.DebugTrace = opt.trace
	return cfg
}

func loadPattern(args []string, opt *options) (string, error) {
	if opt.patternFile != "" {
		b, err := os.ReadFile(opt.patternFile)
		if err != nil {
			return "", fmt.Errorf("Error opening pattern file %q", opt.patternFile)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("Error: In this version, only one pattern may be specified")
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "", nil
}

// parseRange parses "NUM0" or "NUM0..NUM1".
func parseRange(spec string) (lo, hi uint64, err error) {
	if i := strings.Index(spec, ".."); i >= 0 {
		if _, err = fmt.Sscanf(spec[:i], "%d", &lo); err != nil {
			return
		}
		_, err = fmt.Sscanf(spec[i+2:], "%d", &hi)
		return
	}
	_, err = fmt.Sscanf(spec, "%d", &lo)
	hi = lo
	return
}

func runNumerical(opt *options, re *rxmath.Regex, out *bufio.Writer) error {
	basicChar := opt.numChar[0]

	report := func(n uint64) {
		matched, off, length := re.MatchNumber(n, basicChar, uint32(opt.showMatch))
		if opt.countAll {
			count := re.CountNumber(n, basicChar)
			fmt.Fprintf(out, "%d -> %d\n", n, count)
		} else if matched != opt.invert {
			if opt.showSet && matched {
				fmt.Fprintf(out, "%d -> %d:%d\n", n, off, length)
			} else {
				fmt.Fprintf(out, "%d\n", n)
			}
		} else if opt.verbose {
			fmt.Fprintf(out, "%d: no match\n", n)
		}
		if opt.lineBuffered {
			out.Flush()
		}
	}

	if opt.seqSpec != "" || opt.seqUpTo != "" {
		return runSequence(opt, re, basicChar, out)
	}
	if opt.rangeSpec != "" {
		lo, hi, err := parseRange(opt.rangeSpec)
		if err != nil {
			return err
		}
		for n := lo; ; n++ {
			report(n)
			if n == hi {
				break
			}
		}
		return nil
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		var n uint64
		if _, err := fmt.Sscanf(strings.TrimSpace(sc.Text()), "%d", &n); err != nil {
			continue
		}
		report(n)
	}
	return sc.Err()
}

// runSequence prints the NUM0th..NUM1th matching (or, inverted,
// non-matching) numbers of the sequence the pattern defines.
func runSequence(opt *options, re *rxmath.Regex, basicChar byte, out *bufio.Writer) error {
	var lo, hi uint64
	var err error
	if opt.seqUpTo != "" {
		lo = 0
		if _, err = fmt.Sscanf(opt.seqUpTo, "%d", &hi); err != nil {
			return err
		}
		if hi == 0 {
			return nil
		}
		hi--
	} else {
		lo, hi, err = parseRange(opt.seqSpec)
		if err != nil {
			return err
		}
	}
	idx := uint64(0)
	for n := uint64(0); ; n++ {
		matched, _, _ := re.MatchNumber(n, basicChar, 0)
		if matched != opt.invert {
			if idx >= lo {
				fmt.Fprintf(out, "%d\n", n)
				if opt.lineBuffered {
					out.Flush()
				}
			}
			if idx == hi {
				return nil
			}
			idx++
		}
	}
}

func runStringMode(opt *options, re *rxmath.Regex, out *bufio.Writer) error {
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<24)
	for sc.Scan() {
		line := sc.Bytes()
		if opt.countAll {
			fmt.Fprintf(out, "%s -> %d\n", line, re.CountString(line))
		} else {
			matched, off, length := re.MatchString(line, uint32(opt.showMatch))
			if matched != opt.invert {
				if opt.showSet && matched {
					fmt.Fprintf(out, "%s\n", line[off:off+length])
				} else {
					fmt.Fprintf(out, "%s\n", line)
				}
			} else if opt.verbose {
				fmt.Fprintf(out, "%s: no match\n", line)
			}
		}
		if opt.lineBuffered {
			out.Flush()
		}
	}
	return sc.Err()
}
