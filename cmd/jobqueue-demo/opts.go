package main

import "time"

// Opts are the demo's command-line options.
type Opts struct {
	CSV      bool `long:"csv" description:"interpret STDIN as a CSV, using the header row as field names"`
	JsonLine bool `long:"json-line" description:"interpret STDIN as JSON objects, one per line"`

	Concurrency   int            `long:"concurrency" short:"c" description:"run up to this many jobs at once" default:"10"`
	Serial        bool           `long:"serial" description:"never run more than one job at a time, overriding --concurrency and --rate-limit"`
	RateLimit     int            `long:"rate-limit" description:"maximum jobs to start per second"`
	StatsInterval *time.Duration `long:"stats-interval" description:"how often to emit a stats event" default:"1s"`
	SubmitRate    float64        `long:"submit-rate" description:"throttle how fast stdin is turned into pushed jobs, in lines per second (0 disables)"`

	Debug      bool `long:"debug" description:"show more detailed log messages"`
	ShowStdout bool `long:"show-stdout" description:"send a copy of each job's STDOUT to the console"`
	ShowStderr bool `long:"show-stderr" description:"send a copy of each job's STDERR to the console"`
}
