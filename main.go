package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/common-nighthawk/go-figure"
	"github.com/jfjallid/golog"
	"github.com/stackviolator/ntlm_extract/internal/capture/live"
	"github.com/stackviolator/ntlm_extract/internal/harvest"
	"golang.org/x/term"
)

var log = golog.Get("")
var release string = "0.2.0"

// Output format of hashes
// NTLMv1: [Username]::[Domain]:[LM Response]:[NT Response]:[NTLM Server Challenge]
// NTLMv2: [Username]::[Domain]:[NTLM Server Challenge]:[NTProofStr]:[Rest of NTLM Response]

var packages = map[string]string{
	"github.com/stackviolator/ntlm_extract/internal/ntlmssp": "ntlmssp",
	"github.com/stackviolator/ntlm_extract/internal/capture": "capture",
	"github.com/stackviolator/ntlm_extract/internal/harvest": "harvest",
}

func setupLogging(debug, quiet bool) {
	for pkg, prefix := range packages {
		if debug {
			golog.Set(pkg, prefix, golog.LevelDebug, golog.LstdFlags|golog.Lshortfile, golog.DefaultOutput, golog.DefaultErrOutput)
		} else if quiet {
			golog.Set(pkg, prefix, golog.LevelError, golog.LstdFlags, golog.DefaultOutput, golog.DefaultErrOutput)
		} else {
			golog.Set(pkg, prefix, golog.LevelInfo, golog.LstdFlags, golog.DefaultOutput, golog.DefaultErrOutput)
		}
	}
	if debug {
		log.SetFlags(golog.LstdFlags | golog.Lshortfile)
		log.SetLogLevel(golog.LevelDebug)
	} else if quiet {
		log.SetLogLevel(golog.LevelError)
	} else {
		log.SetLogLevel(golog.LevelInfo)
	}
}

func banner() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	fmt.Fprint(os.Stderr, figure.NewFigure("ntlm_extract", "", true).String())
	fmt.Fprintf(os.Stderr, "version %s\n\n", release)
}

func openHashFile(path string) (io.WriteCloser, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func run() error {
	// Set up the argparse system
	parser := argparse.NewParser("ntlm_extract", "Extract NTLM challenge/response hashes from packet captures")

	fileCmd := parser.NewCommand("file", "Scan a pcap or pcapng file")
	filePath := fileCmd.String("p", "path", &argparse.Options{Required: true, Help: "Input PCAP file"})

	dirCmd := parser.NewCommand("dir", "Scan every capture file below a directory")
	dirPath := dirCmd.String("p", "path", &argparse.Options{Required: true, Help: "Directory to search recursively"})
	workers := dirCmd.Int("w", "workers", &argparse.Options{Help: "Captures scanned in parallel (default: number of CPUs)"})

	ifaceCmd := parser.NewCommand("interface", "Capture live from a network interface")
	iface := ifaceCmd.String("i", "iface", &argparse.Options{Required: true, Help: "Interface name"})
	filter := ifaceCmd.String("f", "filter", &argparse.Options{Help: "BPF filter, e.g. \"tcp port 445\""})
	snaplen := ifaceCmd.Int("s", "snaplen", &argparse.Options{Help: "Snapshot length"})
	noPromisc := ifaceCmd.Flag("n", "no-promisc", &argparse.Options{Help: "Do not put the interface in promiscuous mode"})

	output := parser.String("o", "output", &argparse.Options{Help: "Append recovered hashes to this file"})
	configPath := parser.String("c", "config", &argparse.Options{Help: "YAML config file"})
	perFlow := parser.Flag("F", "per-flow", &argparse.Options{Help: "Correlate challenges and responses per connection"})
	utf16 := parser.Flag("u", "utf16", &argparse.Options{Help: "Decode user and domain names as UTF-16LE"})
	http := parser.Flag("H", "http", &argparse.Options{Help: "Also decode NTLM tokens in HTTP authentication headers"})
	smbOnly := parser.Flag("S", "smb-only", &argparse.Options{Help: "Only scan SMB payloads"})
	debug := parser.Flag("d", "debug", &argparse.Options{Help: "Enable debug logging"})
	quiet := parser.Flag("q", "quiet", &argparse.Options{Help: "Only log errors"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(2)
	}

	setupLogging(*debug, *quiet)
	if !*quiet {
		banner()
	}

	var cfg harvest.Config
	if *configPath != "" {
		var err error
		if cfg, err = harvest.ReadConfig(*configPath); err != nil {
			return err
		}
	}
	opts := cfg.Options()
	opts.PerFlow = opts.PerFlow || *perFlow
	opts.UTF16 = opts.UTF16 || *utf16
	opts.HTTP = opts.HTTP || *http
	opts.SMBOnly = opts.SMBOnly || *smbOnly

	if *output != "" {
		cfg.Output = *output
	}
	hashes, err := openHashFile(cfg.Output)
	if err != nil {
		return err
	}
	if hashes != nil {
		defer hashes.Close()
	}
	sink := harvest.NewLineSink(os.Stdout, hashes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats harvest.Stats
	switch {
	case fileCmd.Happened():
		stats, err = harvest.ScanFile(ctx, *filePath, opts, sink)
	case dirCmd.Happened():
		n := *workers
		if n <= 0 {
			n = cfg.Workers
		}
		if n <= 0 {
			n = runtime.NumCPU()
		}
		stats, err = harvest.ScanDir(ctx, *dirPath, n, opts, sink)
	case ifaceCmd.Happened():
		lc := live.DefaultConfig
		if cfg.Live.SnapLen > 0 {
			lc.SnapLen = cfg.Live.SnapLen
		}
		if *snaplen > 0 {
			lc.SnapLen = int32(*snaplen)
		}
		if cfg.Live.Promiscuous != nil {
			lc.Promiscuous = *cfg.Live.Promiscuous
		}
		if *noPromisc {
			lc.Promiscuous = false
		}
		if cfg.Live.Timeout > 0 {
			lc.Timeout = time.Duration(cfg.Live.Timeout)
		}
		lc.Filter = cfg.Live.Filter
		if *filter != "" {
			lc.Filter = *filter
		}

		src, err := live.Open(ctx, *iface, lc)
		if err != nil {
			return err
		}
		defer src.Close()
		log.Infof("Listening on %s, press Ctrl-C to stop\n", *iface)
		stats, err = harvest.Run(ctx, *iface, src, opts, sink)
		if err != nil {
			return err
		}
	}

	log.Infof("Done: %s\n", stats)
	return err
}

func main() {
	if err := run(); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}
