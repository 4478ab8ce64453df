package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings" // strings normalizes enumerated values
	"time"    // time parses duration-valued settings
)

// CapPolicy decides what happens when the per-event purchase cap check
// fails at payment-confirmation time (the cap may have been reached by
// another booking paid after this one was created).
type CapPolicy string

const (
	// CapPolicyHold leaves the booking PENDING; its seats stay held
	// until the reservation expires naturally.
	CapPolicyHold CapPolicy = "hold"
	// CapPolicyCancel cancels the booking immediately and returns its
	// seats to the event.
	CapPolicyCancel CapPolicy = "cancel"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// reservation hold and sweeper timing.
type Config struct {
	Env              string        // application environment (e.g. "dev", "prod")
	Port             string        // HTTP port to listen on
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	JWTSecret        string        // secret used to verify externally issued JWTs
	QRDir            string        // directory ticket QR images are written to
	HoldTTL          time.Duration // how long a PENDING booking keeps its seats
	SweepInterval    time.Duration // how often the expiry sweeper ticks
	SweepJitter      time.Duration // random delay before the sweeper's first tick
	SweepBatch       int           // max bookings expired per sweeper tick
	MaxTicketsPerEvt int           // paid-ticket cap per customer per event
	ConfirmCapPolicy CapPolicy     // behaviour when the cap check fails at confirm time
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Workflow knobs all
// default to the production behaviour (10 minute hold, 60 second sweep,
// cap of 4 paid tickets).
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),      // environment (dev/test/prod)
		Port:             must("APP_PORT"),     // port to bind the HTTP server
		DBUser:           must("DB_USER"),      // database user
		DBPass:           os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:           must("DB_HOST"),      // database host
		DBPort:           must("DB_PORT"),      // database port
		DBName:           must("DB_NAME"),      // database name
		JWTSecret:        must("JWT_SECRET"),   // secret shared with the identity provider
		QRDir:            envStr("QR_DIR", "qrcodes"),
		HoldTTL:          envDur("RESERVATION_HOLD_TTL", 10*time.Minute),
		SweepInterval:    envDur("SWEEP_INTERVAL", time.Minute),
		SweepJitter:      envDur("SWEEP_JITTER", 5*time.Second),
		SweepBatch:       envInt("SWEEP_BATCH", 100),
		MaxTicketsPerEvt: envInt("MAX_TICKETS_PER_EVENT", 4),
		ConfirmCapPolicy: capPolicy(envStr("CONFIRM_CAP_POLICY", string(CapPolicyHold))),
	}
}

// capPolicy normalizes the CONFIRM_CAP_POLICY value.  Unknown values
// fall back to "hold", the behaviour observed before the knob existed.
func capPolicy(s string) CapPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(CapPolicyCancel):
		return CapPolicyCancel
	default:
		return CapPolicyHold
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
