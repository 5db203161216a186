package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	gpprof "github.com/google/pprof/profile"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/compiler/general"
	"github.com/nume-crypto/plonkify/compiler/vanilla"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/internal/logger"
	"github.com/nume-crypto/plonkify/r1cs"
)

// buildVersion is this binary's own reported version (§6C --version).
var buildVersion = semver.MustParse("1.0.0")

// supportedFormatRange bounds the R1CS header's declared format version,
// treated as a bare major version (the wire format carries no dotted
// semver string of its own).
const supportedFormatRange = ">=1.0.0 <2.0.0"

func formatVersionSupported(headerVersion uint32) (bool, error) {
	rng, err := semver.ParseRange(supportedFormatRange)
	if err != nil {
		return false, err
	}
	return rng(semver.Version{Major: uint64(headerVersion)}), nil
}

// run is the CLI's testable entry point: main just forwards os.Args/Stdout/Stderr here.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plonkify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	optimize := fs.Int("optimize", 0, "0=V-Simple/G-Naive-Linear, 1=V-Optimised/G-Linear-Only, 2=V-Greedy-BF/G-Simple-with-expansion")
	generalMode := fs.Bool("general", false, "use the general-gate compiler family instead of vanilla Plonk (requires --gate unless the Jellyfish turbo gate is acceptable)")
	gatePath := fs.String("gate", "", "path to a JSON CustomizedGates description (general mode only; defaults to the Jellyfish turbo gate)")
	cacheOut := fs.String("cache-out", "", "optional path to cache the compiled circuit as CBOR")
	cpuProfile := fs.String("cpuprofile", "", "write a CPU profile to this path")
	memProfile := fs.String("memprofile", "", "write a heap profile to this path")
	showVersion := fs.Bool("version", false, "print the CLI's build version and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, buildVersion.String())
		return 0
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "usage: plonkify [flags] <circuit.r1cs> <witness.(json|wtns)>")
		return 2
	}

	log := logger.Logger().With().Str("component", "cmd.plonkify").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cpuBuf bytes.Buffer
	if *cpuProfile != "" {
		if err := pprof.StartCPUProfile(&cpuBuf); err != nil {
			log.Error().Err(err).Msg("starting cpu profile")
			return 1
		}
		defer func() {
			pprof.StopCPUProfile()
			if err := writeAnnotatedProfile(cpuBuf.Bytes(), *cpuProfile, fs.Arg(0)); err != nil {
				log.Error().Err(err).Msg("writing cpu profile")
			}
		}()
	}

	circuitPath, witnessPath := fs.Arg(0), fs.Arg(1)

	f, err := readR1CSFile(ctx, circuitPath)
	if err != nil {
		log.Error().Err(err).Str("path", circuitPath).Msg("reading r1cs")
		return 1
	}
	supported, err := formatVersionSupported(f.Version)
	if err != nil {
		log.Error().Err(err).Msg("checking format version range")
		return 1
	}
	if !supported {
		log.Error().Uint32("version", f.Version).Msg("unsupported r1cs format version")
		return 1
	}

	witness, err := readWitnessFile(ctx, witnessPath)
	if err != nil {
		log.Error().Err(err).Str("path", witnessPath).Msg("reading witness")
		return 1
	}
	f.Witness = witness

	c, fullWitness, err := compile(f, *generalMode, *optimize, *gatePath)
	if err != nil {
		log.Error().Err(err).Msg("plonkify")
		return 1
	}

	if err := c.IsSatisfied(fullWitness); err != nil {
		log.Error().Err(err).Msg("compiled circuit does not satisfy its own witness")
		return 1
	}
	log.Info().Int("rows", c.NumConstraints).Int("pub_inputs", c.NumPubInputs).Msg("plonkify succeeded")
	fmt.Fprintf(stdout, "ok: %d rows, %d public inputs\n", c.NumConstraints, c.NumPubInputs)

	if *cacheOut != "" {
		if err := writeCachedCircuit(*cacheOut, c); err != nil {
			log.Error().Err(err).Str("path", *cacheOut).Msg("writing circuit cache")
			return 1
		}
	}

	if *memProfile != "" {
		var buf bytes.Buffer
		if err := pprof.WriteHeapProfile(&buf); err != nil {
			log.Error().Err(err).Msg("capturing heap profile")
			return 1
		}
		if err := writeAnnotatedProfile(buf.Bytes(), *memProfile, circuitPath); err != nil {
			log.Error().Err(err).Msg("writing heap profile")
			return 1
		}
	}

	return 0
}

func readR1CSFile(ctx context.Context, path string) (*r1cs.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", r1cs.ErrInvalidInput, err)
	}
	defer f.Close()
	return r1cs.ReadR1CS(f)
}

// readWitnessFile extension-sniffs path per §6B: ".wtns" is the packed
// binary format, anything else is the JSON array format.
func readWitnessFile(ctx context.Context, path string) ([]fr.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", r1cs.ErrInvalidInput, err)
	}
	defer f.Close()
	if strings.HasSuffix(path, ".wtns") {
		return r1cs.ReadWitnessBinary(f)
	}
	return r1cs.ReadWitnessJSON(f)
}

// loadGate returns the Jellyfish turbo gate when path is empty, otherwise
// decodes a JSON-encoded gate.CustomizedGates from path.
func loadGate(path string) (*gate.CustomizedGates, error) {
	if path == "" {
		return gate.JellyfishTurboPlonkGate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g gate.CustomizedGates
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: decoding gate description: %v", gate.ErrUnsupportedGate, err)
	}
	return &g, nil
}

// compile selects and runs one of the six compiler variants per
// --general/--optimize (§6C).
func compile(f *r1cs.File, generalMode bool, optimize int, gatePath string) (*circuit.PlonkishCircuit, [][]fr.Element, error) {
	if !generalMode {
		switch optimize {
		case 0:
			c, w := vanilla.PlonkifySimple(f)
			return c, w, nil
		case 1:
			c, w := vanilla.PlonkifyOptimised(f)
			return c, w, nil
		case 2:
			c, w := vanilla.PlonkifyGreedyBF(f)
			return c, w, nil
		default:
			return nil, nil, fmt.Errorf("unsupported --optimize level %d", optimize)
		}
	}

	rawGate, err := loadGate(gatePath)
	if err != nil {
		return nil, nil, err
	}
	gi, err := gate.NewGateInfo(rawGate)
	if err != nil {
		return nil, nil, err
	}

	switch optimize {
	case 0:
		c, w := general.PlonkifyNaiveLinear(f, rawGate, gi)
		return c, w, nil
	case 1:
		c, w := general.PlonkifyLinearOnly(f, rawGate, gi)
		return c, w, nil
	case 2:
		c, w := general.PlonkifySimple(f, rawGate, gi, general.ExpansionConfig{Mode: general.ExpansionNoLimit})
		return c, w, nil
	default:
		return nil, nil, fmt.Errorf("unsupported --optimize level %d", optimize)
	}
}

func writeCachedCircuit(path string, c *circuit.PlonkishCircuit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = c.WriteTo(f)
	return err
}

// writeAnnotatedProfile parses a raw runtime/pprof capture, stamps it with
// a comment naming the input that produced it, and re-serializes it to
// outPath -- giving google/pprof's own profile type an annotate-and-rewrite
// step instead of treating runtime/pprof's output as already final.
func writeAnnotatedProfile(raw []byte, outPath, subject string) error {
	p, err := gpprof.Parse(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parsing captured profile: %w", err)
	}
	p.Comments = append(p.Comments, fmt.Sprintf("plonkify compile of %s", subject))

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Write(f)
}
