// ctinspect generates, saves and inspects serialized RNS ciphertexts.
//
// Generate a random ciphertext of size 3 at the top level and save it:
//
//	ctinspect -out ct.bin -size 3 -seed demo
//
// Load it back, check it against the parameters and print its header:
//
//	ctinspect -in ct.bin
//
// Parameters are read from a JSON-encoded rlwe.ParametersLiteral given by
// -params, and default to a small ring of degree 2^10 with three moduli.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tuneinsight/rnsct/rlwe"
	"github.com/tuneinsight/rnsct/utils/buffer"
	"github.com/tuneinsight/rnsct/utils/sampling"
)

var defaultParams = rlwe.ParametersLiteral{
	LogN: 10,
	LogQ: []int{55, 40, 40},
}

type config struct {
	params   string
	hash     string
	in       string
	out      string
	size     int
	level    int
	seed     string
	unsafe   bool
	validate bool
	show     int
}

func parseFlags(args []string, stderr io.Writer) (cfg config, err error) {
	fs := flag.NewFlagSet("ctinspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.params, "params", "", "path to a JSON parameters literal (default: LogN=10, LogQ=[55 40 40])")
	fs.StringVar(&cfg.hash, "hash", rlwe.HashBLAKE2b.String(), "fingerprint hash: blake2b, sha3 or blake3")
	fs.StringVar(&cfg.in, "in", "", "ciphertext file to load and inspect")
	fs.StringVar(&cfg.out, "out", "", "file to save a freshly generated ciphertext to")
	fs.IntVar(&cfg.size, "size", 2, "number of polynomials of the generated ciphertext")
	fs.IntVar(&cfg.level, "level", -1, "level of the generated ciphertext (default: max level)")
	fs.StringVar(&cfg.seed, "seed", "", "key of the PRNG, a random stream is used if empty")
	fs.BoolVar(&cfg.unsafe, "unsafe", false, "load without checking the ciphertext against the parameters")
	fs.BoolVar(&cfg.validate, "validate", true, "check residues and metadata after loading or generating")
	fs.IntVar(&cfg.show, "show", 4, "number of leading coefficients printed per polynomial")
	if err = fs.Parse(args); err != nil {
		return
	}
	if (cfg.in == "") == (cfg.out == "") {
		return cfg, errors.New("exactly one of -in and -out must be set")
	}
	return
}

func loadLiteral(path string) (lit rlwe.ParametersLiteral, err error) {
	if path == "" {
		return defaultParams, nil
	}
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	if err = json.Unmarshal(data, &lit); err != nil {
		return lit, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return
}

func newPRNG(seed string) (sampling.PRNG, error) {
	if seed == "" {
		return sampling.NewPRNG()
	}
	return sampling.NewKeyedPRNG([]byte(seed))
}

func run(args []string, stdout, stderr io.Writer) (err error) {

	var cfg config
	if cfg, err = parseFlags(args, stderr); err != nil {
		return
	}

	var lit rlwe.ParametersLiteral
	if lit, err = loadLiteral(cfg.params); err != nil {
		return
	}

	var h rlwe.FingerprintHash
	if h, err = rlwe.ParseFingerprintHash(cfg.hash); err != nil {
		return
	}

	ctx := rlwe.NewContextFromLiteral(lit, rlwe.WithFingerprintHash(h))
	if err = ctx.Err(); err != nil {
		return
	}

	var ct *rlwe.Ciphertext

	if cfg.out != "" {
		if ct, err = generate(cfg, ctx); err != nil {
			return
		}
	} else if ct, err = load(cfg, ctx); err != nil {
		return
	}

	if cfg.validate {
		if err = ct.CheckValidFor(ctx); err != nil {
			return
		}
	}

	describe(stdout, ctx, ct, cfg.show)

	return
}

func generate(cfg config, ctx *rlwe.Context) (ct *rlwe.Ciphertext, err error) {

	level := cfg.level
	if level < 0 {
		level = ctx.Parameters().MaxLevel()
	}

	var prng sampling.PRNG
	if prng, err = newPRNG(cfg.seed); err != nil {
		return
	}

	if ct, err = rlwe.NewCiphertextRandom(prng, ctx, cfg.size, level); err != nil {
		return
	}

	var f *os.File
	if f, err = os.Create(cfg.out); err != nil {
		return
	}

	s := buffer.NewWriteStream(f)
	s.SetMode(buffer.Strict)

	if err = ct.Save(s); err != nil {
		f.Close()
		return
	}

	if err = s.Flush(); err != nil {
		f.Close()
		return
	}

	return ct, f.Close()
}

func load(cfg config, ctx *rlwe.Context) (ct *rlwe.Ciphertext, err error) {

	var f *os.File
	if f, err = os.Open(cfg.in); err != nil {
		return
	}
	defer f.Close()

	s := buffer.NewReadStream(f)
	ct = rlwe.NewCiphertext(nil)

	if cfg.unsafe {
		err = ct.UnsafeLoad(s)
	} else {
		err = ct.Load(ctx, s)
	}

	return
}

func describe(w io.Writer, ctx *rlwe.Context, ct *rlwe.Ciphertext, show int) {

	fmt.Fprintf(w, "fingerprint: %s (%s)\n", ct.Fingerprint(), ctx.Hash())

	if level, ok := ctx.LevelOf(ct.Fingerprint()); ok {
		fmt.Fprintf(w, "level:       %d\n", level)
	} else {
		fmt.Fprintf(w, "level:       unknown\n")
	}

	fmt.Fprintf(w, "size:        %d\n", ct.Size())
	fmt.Fprintf(w, "ring degree: %d\n", ct.RingDegree())
	fmt.Fprintf(w, "moduli:      %d\n", ct.ModulusCount())
	fmt.Fprintf(w, "scale:       %g\n", ct.Scale)
	fmt.Fprintf(w, "ntt:         %t\n", ct.IsNTT)
	fmt.Fprintf(w, "transparent: %t\n", ct.IsTransparent())
	fmt.Fprintf(w, "bytes:       %d\n", ct.BinarySize())

	if show <= 0 || ct.ModulusCount() == 0 {
		return
	}

	show = min(show, ct.RingDegree())

	for i := 0; i < ct.Size(); i++ {
		fmt.Fprintf(w, "c%d[0][:%d]: %v\n", i, show, ct.Residues(i, 0)[:show])
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("ctinspect: ")

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
