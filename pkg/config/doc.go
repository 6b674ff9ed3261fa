// Package config loads the reliability tool configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, RELIABILITY_*
// environment variables (optionally seeded from a .env file), command line
// flags. Flags are applied by the caller.
//
//	model:
//	  mechanism: em          # em | nbti
//	  em_constants: jedec    # bolchini2014 | jedec
//	  voltage: 1.0
//	  stress: 1.0
//	run:
//	  delta_ms: 100000
//	  r_limit: 0.01
//	  report_every: 100000
//	  max_samples: 0
//	output:
//	  db: curve.db
//	  csv: curve.csv
//	metrics:
//	  addr: ":9464"
//	log:
//	  level: info
package config
