package main

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/imicrobe/seqweight/internal/config"
)

// stringList collects a flag that may be repeated
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// Flag groups a subcommand can ask for
const (
	flagInputs   = "inputs"
	flagWorkers  = "workers"
	flagLimit    = "file-limit"
	flagGroups   = "groups"
	flagPrefix   = "prefix"
	flagMetric   = "metric"
	flagReports  = "reports"
	flagReadRate = "read-bytes-per-sec"
	flagDebounce = "debounce"
	flagWeights  = "weights"
	flagSplit    = "split"
)

// cliFlags holds the parsed values of one subcommand's flags
type cliFlags struct {
	fs         *flag.FlagSet
	configPath string
	values     config.Config
	inputs     stringList

	// split takes its input and output from flags only
	splitFasta  string
	splitCount  int
	splitOutDir string
}

// setters copy an explicitly set flag onto the loaded configuration
var setters = map[string]func(dst *config.Config, f *cliFlags){
	"inputs":             func(d *config.Config, f *cliFlags) { d.Inputs = f.inputs },
	"db":                 func(d *config.Config, f *cliFlags) { d.DBPath = f.values.DBPath },
	"workers":            func(d *config.Config, f *cliFlags) { d.Workers = f.values.Workers },
	"file-limit":         func(d *config.Config, f *cliFlags) { d.FileLimit = f.values.FileLimit },
	"groups":             func(d *config.Config, f *cliFlags) { d.Groups = f.values.Groups },
	"prefix":             func(d *config.Config, f *cliFlags) { d.Prefix = f.values.Prefix },
	"metric":             func(d *config.Config, f *cliFlags) { d.Metric = f.values.Metric },
	"valid-files":        func(d *config.Config, f *cliFlags) { d.ValidFiles = f.values.ValidFiles },
	"invalid-files":      func(d *config.Config, f *cliFlags) { d.InvalidFiles = f.values.InvalidFiles },
	"read-bytes-per-sec": func(d *config.Config, f *cliFlags) { d.ReadBytesPerSec = f.values.ReadBytesPerSec },
	"debounce":           func(d *config.Config, f *cliFlags) { d.WatchDebounce = f.values.WatchDebounce },
	"settle":             func(d *config.Config, f *cliFlags) { d.WatchSettle = f.values.WatchSettle },
	"weights":            func(d *config.Config, f *cliFlags) { d.Weights = f.values.Weights },
	"log-level":          func(d *config.Config, f *cliFlags) { d.Log.Level = f.values.Log.Level },
	"log-format":         func(d *config.Config, f *cliFlags) { d.Log.Format = f.values.Log.Format },
}

// aliases maps short flag names to the long ones in setters
var aliases = map[string]string{
	"i": "inputs",
	"d": "db",
	"w": "workers",
	"k": "groups",
	"p": "prefix",
}

func newFlags(name string, stderr io.Writer, groups ...string) *cliFlags {
	f := &cliFlags{fs: flag.NewFlagSet("seqweight "+name, flag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	fs.StringVar(&f.values.DBPath, "db", "", "SQLite index database")
	fs.StringVar(&f.values.DBPath, "d", "", "shorthand for -db")
	fs.StringVar(&f.values.Log.Level, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.values.Log.Format, "log-format", "", "text or json")

	for _, g := range groups {
		switch g {
		case flagInputs:
			fs.Var(&f.inputs, "inputs", "comma-separated FASTA globs, ** allowed (repeatable)")
			fs.Var(&f.inputs, "i", "shorthand for -inputs")
		case flagWorkers:
			fs.IntVar(&f.values.Workers, "workers", 0, "parallel parse workers")
			fs.IntVar(&f.values.Workers, "w", 0, "shorthand for -workers")
		case flagLimit:
			fs.IntVar(&f.values.FileLimit, "file-limit", 0, "process at most this many pending files")
		case flagGroups:
			fs.IntVar(&f.values.Groups, "groups", 0, "number of groups (2-676)")
			fs.IntVar(&f.values.Groups, "k", 0, "shorthand for -groups")
		case flagPrefix:
			fs.StringVar(&f.values.Prefix, "prefix", "", "group file prefix, or s3://bucket/prefix")
			fs.StringVar(&f.values.Prefix, "p", "", "shorthand for -prefix")
		case flagMetric:
			fs.StringVar(&f.values.Metric, "metric", "", "file weight: sum, logsum or sqsum")
		case flagReports:
			fs.StringVar(&f.values.ValidFiles, "valid-files", "", "write sorted valid paths here")
			fs.StringVar(&f.values.InvalidFiles, "invalid-files", "", "write invalid paths and reasons here")
		case flagReadRate:
			fs.Int64Var(&f.values.ReadBytesPerSec, "read-bytes-per-sec", 0, "cap combined read throughput (0 for none)")
		case flagDebounce:
			fs.DurationVar(&f.values.WatchDebounce, "debounce", 0, "quiet period before re-indexing")
			fs.DurationVar(&f.values.WatchSettle, "settle", 0, "minimum time since a file's last change before it is indexed")
		case flagWeights:
			fs.StringVar(&f.values.Weights, "weights", "", "index (stored statistics) or size (file bytes, paths from -i or stdin)")
		case flagSplit:
			fs.StringVar(&f.splitFasta, "fasta", "", "FASTA file to split")
			fs.StringVar(&f.splitFasta, "f", "", "shorthand for -fasta")
			fs.IntVar(&f.splitCount, "splits", 0, "number of output files")
			fs.IntVar(&f.splitCount, "n", 0, "shorthand for -splits")
			fs.StringVar(&f.splitOutDir, "out-dir", "fasplit", "output directory")
			fs.StringVar(&f.splitOutDir, "o", "fasplit", "shorthand for -out-dir")
		}
	}
	return f
}

// load parses args and layers defaults, config file, environment and the
// flags the user set, in that order.
func (f *cliFlags) load(args []string) (*config.Config, error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, err
	}

	path := f.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	f.fs.Visit(func(fl *flag.Flag) {
		name := fl.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		if set, ok := setters[name]; ok {
			set(&cfg, f)
		}
	})

	return &cfg, nil
}
