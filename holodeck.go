/*
holodeck computes the gravitational-wave background produced by a
gridded population of supermassive-black-hole binaries: it calibrates a
two-regime hardening model to a target coalescence time for every
(mass, ratio) pair, walks each binary's separation trajectory through an
expanding universe, and bins the resulting crossings into an
observed-frame characteristic-strain spectrum.
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/exp/rand"

	"github.com/window-0701/holodeck/config"
	"github.com/window-0701/holodeck/cosmo"
	"github.com/window-0701/holodeck/gwb"
	"github.com/window-0701/holodeck/hardening"
	"github.com/window-0701/holodeck/logging"
	"github.com/window-0701/holodeck/sam"
	"github.com/window-0701/holodeck/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "holodeck",
		Short:         "Supermassive-black-hole-binary GW background pipeline",
		Version:       version.SourceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(spectrumCmd(), configCmd())
	return root
}

// spectrumFlags are the flags shared with any future batch subcommand.
type spectrumFlags struct {
	configPath string
	outPath    string
	workers    int
	verbose    bool
}

func (f *spectrumFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "TOML run configuration (defaults built in)")
	fs.StringVarP(&f.outPath, "out", "o", "", "write the spectrum table here instead of stdout")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = GOMAXPROCS)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
}

func spectrumCmd() *cobra.Command {
	var flags spectrumFlags
	cmd := &cobra.Command{
		Use:   "spectrum",
		Short: "Compute the GW background spectrum for a configured population",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSpectrum(cmd, &flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print an example run configuration",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.Example())
		},
	}
}

func runSpectrum(cmd *cobra.Command, flags *spectrumFlags) error {
	logging.SetVerbose(flags.verbose)
	log := logging.Logger()
	ctx := cmd.Context()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		log.Error().Err(err).Msg("loading configuration")
		return err
	}
	workers := cfg.Run.Workers
	if flags.workers > 0 {
		workers = flags.workers
	}

	tab, err := cfg.BuildTable()
	if err != nil {
		return err
	}
	grids, dens, err := cfg.BuildGrids()
	if err != nil {
		return err
	}
	edges := cfg.FobsEdges()
	params := cfg.HardeningParams()

	nm, nq, nz := grids.Shape()
	log.Info().
		Int("n_mtot", nm).Int("n_mrat", nq).Int("n_redz", nz).
		Int("n_fbins", len(edges)-1).
		Float64("target_gyr", cfg.Hardening.TargetTimeGyr).
		Msg("starting run")

	t0 := time.Now()
	norm, results, err := hardening.SolveNormField(
		ctx, grids.Mtot, grids.Mrat, cfg.TargetTime(),
		params, cfg.SolverOptions(), workers,
	)
	if err != nil {
		return err
	}
	bad := 0
	for i, r := range results {
		if !r.Converged {
			bad++
			log.Warn().
				Int("mass_index", i/nq).Int("ratio_index", i%nq).
				Float64("norm_log10", r.NormLog10).
				Float64("residual_gyr", r.Residual/cosmo.Gyr).
				Msg("normalization solve did not converge; keeping best estimate")
		}
	}
	log.Info().
		Dur("elapsed", time.Since(t0)).Int("non_converged", bad).
		Msg("normalization field solved")

	t1 := time.Now()
	redzFinal, diffNum, err := sam.DynamicBinaryNumber(
		ctx, grids, dens, norm, tab, params, edges, workers,
	)
	if err != nil {
		return err
	}
	log.Info().
		Dur("elapsed", time.Since(t1)).
		Int("crossings", diffNum.CountFinite()).
		Str("mem", logging.MemString()).
		Msg("binary-number field mapped")

	hc, err := gwb.Spectrum(grids, edges, redzFinal, diffNum, tab)
	if err != nil {
		return err
	}

	var realized []float64
	if cfg.Run.NReals > 0 {
		r, err := gwb.Realize(grids, edges, redzFinal, diffNum, tab,
			cfg.Run.NReals, rand.NewSource(cfg.Run.Seed))
		if err != nil {
			return err
		}
		realized = make([]float64, len(hc))
		for i := range realized {
			sum := 0.0
			for j := 0; j < cfg.Run.NReals; j++ {
				sum += r.At(i, j)
			}
			realized[i] = sum / float64(cfg.Run.NReals)
		}
		log.Info().Int("n_reals", cfg.Run.NReals).Msg("Poisson realizations drawn")
	}

	out := cmd.OutOrStdout()
	if flags.outPath != "" {
		f, err := os.Create(flags.outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := writeSpectrum(out, edges, hc, realized); err != nil {
		return err
	}

	log.Info().Dur("total", time.Since(t0)).Msg("done")
	return nil
}

// writeSpectrum writes one whitespace-separated row per frequency bin:
// the bin's edge frequencies in Hz, the characteristic strain, and (when
// realizations were drawn) the mean realized strain.
func writeSpectrum(w io.Writer, edges, hc, realized []float64) error {
	b := &strings.Builder{}
	if realized == nil {
		fmt.Fprintf(b, "# fobs_lo_hz fobs_hi_hz hc\n")
	} else {
		fmt.Fprintf(b, "# fobs_lo_hz fobs_hi_hz hc hc_realized\n")
	}
	for i := range hc {
		fmt.Fprintf(b, "%.8e %.8e %.8e", edges[i], edges[i+1], hc[i])
		if realized != nil {
			fmt.Fprintf(b, " %.8e", realized[i])
		}
		fmt.Fprintf(b, "\n")
	}
	_, err := w.Write([]byte(b.String()))
	return err
}
