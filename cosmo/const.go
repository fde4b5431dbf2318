package cosmo

// Physical constants in cgs units.
const (
	// G is Newton's constant in cm^3 / (g s^2).
	G = 6.6743e-8
	// C is the speed of light in cm/s.
	C = 2.99792458e10
	// MSun is the solar mass in g.
	MSun = 1.988409870698051e33

	// Pc and Mpc are the parsec and megaparsec in cm.
	Pc  = 3.0856775814913674e18
	Mpc = 1e6 * Pc

	// Yr is the Julian year in s, Gyr is 10^9 of them.
	Yr  = 3.15576e7
	Gyr = 1e9 * Yr
)
