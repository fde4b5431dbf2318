/*
package config loads the TOML run configuration and expands it into
the grids, cosmology table, and parameter structs the pipeline consumes.
*/
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/window-0701/holodeck/cosmo"
	"github.com/window-0701/holodeck/hardening"
	"github.com/window-0701/holodeck/sam"
)

// Config is the full run configuration. Zero values are filled from
// Default before a file is applied, so a config file only needs the
// fields it changes.
type Config struct {
	Grids       GridsConfig     `toml:"grids"`
	Hardening   HardeningConfig `toml:"hardening"`
	Solver      SolverConfig    `toml:"solver"`
	Frequencies FreqConfig      `toml:"frequencies"`
	Cosmology   CosmoConfig     `toml:"cosmology"`
	Population  PopConfig       `toml:"population"`
	Run         RunConfig       `toml:"run"`
}

// GridsConfig sets the population axes: total masses are log-spaced,
// ratios and formation redshifts linearly spaced.
type GridsConfig struct {
	MtotMinMSol float64 `toml:"mtot_min_msol"`
	MtotMaxMSol float64 `toml:"mtot_max_msol"`
	NMtot       int     `toml:"n_mtot"`
	MratMin     float64 `toml:"mrat_min"`
	MratMax     float64 `toml:"mrat_max"`
	NMrat       int     `toml:"n_mrat"`
	RedzMin     float64 `toml:"redz_min"`
	RedzMax     float64 `toml:"redz_max"`
	NRedz       int     `toml:"n_redz"`
}

// HardeningConfig sets the shared hardening-model parameters.
type HardeningConfig struct {
	SepaInitPc    float64 `toml:"sepa_init_pc"`
	RcharPc       float64 `toml:"rchar_pc"`
	GammaInner    float64 `toml:"gamma_inner"`
	GammaOuter    float64 `toml:"gamma_outer"`
	Nsteps        int     `toml:"nsteps"`
	TargetTimeGyr float64 `toml:"target_time_gyr"`
}

// SolverConfig sets the normalization root-solve bracket and tolerances.
type SolverConfig struct {
	BracketLo float64 `toml:"bracket_lo"`
	BracketHi float64 `toml:"bracket_hi"`
	XTol      float64 `toml:"xtol"`
	RTol      float64 `toml:"rtol"`
	MaxIter   int     `toml:"max_iter"`
}

// FreqConfig sets the observed-frame orbital-frequency bin edges,
// log-spaced between the two bounds.
type FreqConfig struct {
	FobsMinHz float64 `toml:"fobs_min_hz"`
	FobsMaxHz float64 `toml:"fobs_max_hz"`
	NEdges    int     `toml:"n_edges"`
}

// CosmoConfig sets the flat LCDM background used to build the
// interpolation table.
type CosmoConfig struct {
	H0     float64 `toml:"h0"`
	OmegaM float64 `toml:"omega_m"`
	OmegaL float64 `toml:"omega_l"`
	ZMax   float64 `toml:"zmax"`
	NTable int     `toml:"n_table"`
}

// PopConfig is the synthetic stand-in for an external population model:
// a constant stationary density per grid cell and a constant
// galaxy-merger time. Real populations are supplied by a semi-analytic
// model upstream of this tool.
type PopConfig struct {
	DensityPerCell float64 `toml:"density_per_cell"`
	GMTGyr         float64 `toml:"gmt_gyr"`
}

// RunConfig sets execution parameters.
type RunConfig struct {
	Workers int    `toml:"workers"`
	NReals  int    `toml:"n_reals"`
	Seed    uint64 `toml:"seed"`
}

// Default returns the standard configuration: a PTA-band run over
// 1e6 - 1e10 Msol with a 3 Gyr target coalescence time.
func Default() Config {
	return Config{
		Grids: GridsConfig{
			MtotMinMSol: 1e6, MtotMaxMSol: 1e10, NMtot: 20,
			MratMin: 0.05, MratMax: 1.0, NMrat: 10,
			RedzMin: 0.05, RedzMax: 6.0, NRedz: 20,
		},
		Hardening: HardeningConfig{
			SepaInitPc: 1e4, RcharPc: 10,
			GammaInner: -1.0, GammaOuter: 2.5,
			Nsteps: 300, TargetTimeGyr: 3.0,
		},
		Solver: SolverConfig{
			BracketLo: -20, BracketHi: 20,
			XTol: 1e-3, RTol: 1e-5, MaxIter: 100,
		},
		Frequencies: FreqConfig{
			FobsMinHz: 1e-9, FobsMaxHz: 1e-7, NEdges: 41,
		},
		Cosmology: CosmoConfig{
			H0: 70.0, OmegaM: 0.31, OmegaL: 0.69,
			ZMax: 12.0, NTable: 1000,
		},
		Population: PopConfig{DensityPerCell: 1.0, GMTGyr: 0.5},
		Run:        RunConfig{Workers: 0, NReals: 0, Seed: 1},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Example returns the default configuration rendered as TOML.
func Example() string {
	b, err := toml.Marshal(Default())
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Validate checks every section for values the pipeline cannot run
// with. Failures here abort the batch before any work starts.
func (c *Config) Validate() error {
	g := c.Grids
	switch {
	case g.NMtot < 2 || g.NMrat < 1 || g.NRedz < 1:
		return fmt.Errorf("grid sizes too small: %d, %d, %d",
			g.NMtot, g.NMrat, g.NRedz)
	case g.MtotMinMSol <= 0 || g.MtotMaxMSol <= g.MtotMinMSol:
		return fmt.Errorf("bad mass bounds [%g, %g]", g.MtotMinMSol, g.MtotMaxMSol)
	case g.MratMin <= 0 || g.MratMax > 1 || g.MratMax < g.MratMin:
		return fmt.Errorf("bad ratio bounds [%g, %g]", g.MratMin, g.MratMax)
	case g.RedzMin < 0 || g.RedzMax < g.RedzMin:
		return fmt.Errorf("bad redshift bounds [%g, %g]", g.RedzMin, g.RedzMax)
	}
	h := c.Hardening
	switch {
	case h.SepaInitPc <= 0 || h.RcharPc <= 0:
		return fmt.Errorf("separations must be positive: sepa_init %g pc, rchar %g pc",
			h.SepaInitPc, h.RcharPc)
	case h.Nsteps < 1:
		return fmt.Errorf("nsteps must be positive, got %d", h.Nsteps)
	case h.TargetTimeGyr <= 0:
		return fmt.Errorf("target_time_gyr must be positive, got %g", h.TargetTimeGyr)
	}
	s := c.Solver
	if s.BracketHi <= s.BracketLo || s.XTol <= 0 || s.RTol <= 0 || s.MaxIter < 1 {
		return fmt.Errorf("bad solver options: bracket [%g, %g], xtol %g, rtol %g, max_iter %d",
			s.BracketLo, s.BracketHi, s.XTol, s.RTol, s.MaxIter)
	}
	f := c.Frequencies
	if f.NEdges < 2 || f.FobsMinHz <= 0 || f.FobsMaxHz <= f.FobsMinHz {
		return fmt.Errorf("bad frequency edges: [%g, %g] Hz, %d edges",
			f.FobsMinHz, f.FobsMaxHz, f.NEdges)
	}
	co := c.Cosmology
	if co.NTable < 2 || co.ZMax < c.Grids.RedzMax {
		return fmt.Errorf("cosmology table (zmax %g, %d rows) cannot cover redshift grid up to %g",
			co.ZMax, co.NTable, c.Grids.RedzMax)
	}
	p := c.Population
	if p.DensityPerCell < 0 || p.GMTGyr < 0 {
		return fmt.Errorf("population values must be non-negative: density %g, gmt %g Gyr",
			p.DensityPerCell, p.GMTGyr)
	}
	return nil
}

// BuildGrids expands the grid section into population axes plus the
// constant-density and constant-GMT fields of the synthetic population.
func (c *Config) BuildGrids() (*sam.Grids, *sam.Field3, error) {
	gc := c.Grids
	mtot := floats.LogSpan(make([]float64, gc.NMtot),
		gc.MtotMinMSol*cosmo.MSun, gc.MtotMaxMSol*cosmo.MSun)
	mrat := spanOrSingle(gc.NMrat, gc.MratMin, gc.MratMax)
	redz := spanOrSingle(gc.NRedz, gc.RedzMin, gc.RedzMax)

	nm, nq, nz := len(mtot), len(mrat), len(redz)
	g := &sam.Grids{Mtot: mtot, Mrat: mrat, Redz: redz,
		GMT: sam.NewField3(nm, nq, nz)}
	g.GMT.Fill(c.Population.GMTGyr * cosmo.Gyr)
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	dens := sam.NewField3(nm, nq, nz)
	dens.Fill(c.Population.DensityPerCell)
	return g, dens, nil
}

// FobsEdges returns the log-spaced observed-frame orbital-frequency
// edges.
func (c *Config) FobsEdges() []float64 {
	f := c.Frequencies
	return floats.LogSpan(make([]float64, f.NEdges), f.FobsMinHz, f.FobsMaxHz)
}

// BuildTable tabulates the configured flat LCDM cosmology.
func (c *Config) BuildTable() (*cosmo.Table, error) {
	co := c.Cosmology
	return cosmo.NewFlatLCDM(co.H0, co.OmegaM, co.OmegaL, co.ZMax, co.NTable)
}

// HardeningParams converts the hardening section to cgs parameters.
func (c *Config) HardeningParams() hardening.Params {
	h := c.Hardening
	return hardening.Params{
		SepaInit:   h.SepaInitPc * cosmo.Pc,
		Rchar:      h.RcharPc * cosmo.Pc,
		GammaInner: h.GammaInner,
		GammaOuter: h.GammaOuter,
		Nsteps:     h.Nsteps,
	}
}

// SolverOptions converts the solver section.
func (c *Config) SolverOptions() hardening.SolverOptions {
	s := c.Solver
	return hardening.SolverOptions{
		BracketLo: s.BracketLo, BracketHi: s.BracketHi,
		XTol: s.XTol, RTol: s.RTol, MaxIter: s.MaxIter,
	}
}

// TargetTime returns the target coalescence time in s.
func (c *Config) TargetTime() float64 {
	return c.Hardening.TargetTimeGyr * cosmo.Gyr
}

func spanOrSingle(n int, lo, hi float64) []float64 {
	if n == 1 {
		return []float64{hi}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
