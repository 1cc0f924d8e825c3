package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/Altius/stampipes/programs/kmer_match/kmerindex"
	"github.com/spf13/cobra"
)

const version = "0.2.0"

// profiler holds the persistent pprof and logging flags.
type profiler struct {
	cpuprofile string
	memprofile string
	logLevel   string
	logFormat  string

	cpuFile *os.File
}

func (p *profiler) start() error {
	setupLogging(os.Stderr, p.logLevel, p.logFormat)
	if p.cpuprofile == "" {
		return nil
	}
	f, err := os.Create(p.cpuprofile)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

func (p *profiler) stop() error {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
	}
	if p.memprofile == "" {
		return nil
	}
	f, err := os.Create(p.memprofile)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer f.Close()
	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}

func demuxCommand() *cobra.Command {
	var (
		configFile string
		progress   bool
	)
	cmd := &cobra.Command{
		Use:   "demux",
		Short: "Split FASTQ reads by the whitelist barcode their header barcode matches best",
		Long: `Split FASTQ reads into per-barcode files.

The barcode after the last ':' of each read's description is scored against
the configured barcodes by shared k-mers. A read goes to the destination of
its best barcode when that barcode strictly outscores the runner-up; other
reads go to the unmatched file, if one is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return errors.New("must supply --configfile parameter")
			}
			log := componentLogger("main")
			log.Info("reading configuration", "file", configFile)
			config, err := readConfigFile(configFile)
			if err != nil {
				return err
			}
			log.Info("starting demux", "inputs", len(config.Inputs), "destinations", len(config.Destinations), "threads", config.Threads)
			_, err = demux(config, progress)
			return err
		},
	}
	cmd.Flags().StringVarP(&configFile, "configfile", "c", "", "read configuration from `file`")
	cmd.Flags().BoolVarP(&progress, "progress", "p", false, "show a progress bar")
	return cmd
}

func queryCommand() *cobra.Command {
	opts := queryFlags{}
	cmd := &cobra.Command{
		Use:   "query [flags] [SEQ...]",
		Short: "Rank whitelist barcodes by k-mers shared with each query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.whitelist, "whitelist", "w", "", "barcode whitelist `file` (text, FASTA or FASTQ)")
	cmd.Flags().StringVarP(&opts.reads, "reads", "r", "", "read query sequences from `file`")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output `file` (\"-\" for stdout)")
	cmd.Flags().IntVarP(&opts.kmerSize, "kmer-size", "k", kmerindex.DefaultKmerSize, "k-mer length")
	cmd.Flags().IntVarP(&opts.maxHits, "max-hits", "n", kmerindex.DefaultMaxHits, "report at most this many barcodes per query")
	cmd.Flags().IntVarP(&opts.minKmers, "min-kmers", "m", kmerindex.DefaultMinKmers, "minimum shared k-mers")
	cmd.Flags().BoolVar(&opts.reportEmpty, "report-empty", false, "print a row for queries without hits")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kmer_match version %s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
		},
	}
}

func rootCommand(p *profiler) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kmer_match",
		Short:         "Match barcodes against a whitelist by shared k-mers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return p.start()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&p.cpuprofile, "cpuprofile", "", "write cpu profile to `file`")
	flags.StringVar(&p.memprofile, "memprofile", "", "write memory profile to `file`")
	flags.StringVar(&p.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&p.logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(demuxCommand())
	rootCmd.AddCommand(queryCommand())
	rootCmd.AddCommand(versionCommand())
	return rootCmd
}

// execute runs the command line in args. Profiles are finished whether or
// not the command succeeds.
func execute(args []string) error {
	p := &profiler{}
	cmd := rootCommand(p)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if serr := p.stop(); err == nil {
		err = serr
	}
	return err
}

func main() {
	if err := execute(os.Args[1:]); err != nil {
		slog.Error("kmer_match failed", "err", err)
		os.Exit(1)
	}
}
