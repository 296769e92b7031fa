package errors

// -----------------------------------------------------------------------------
// Configuration Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrConfigParseFailed indicates the configuration file could not be parsed.
	ErrConfigParseFailed = "CONFIG_PARSE_FAILED"

	// ErrConfigInvalid indicates configuration values are invalid.
	ErrConfigInvalid = "CONFIG_INVALID"

	// ErrConfigReadFailed indicates the config file exists but could not be read.
	ErrConfigReadFailed = "CONFIG_READ_FAILED"

	// ErrConfigWriteFailed indicates the config file could not be written.
	ErrConfigWriteFailed = "CONFIG_WRITE_FAILED"
)

// -----------------------------------------------------------------------------
// Experiment Construction Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrPartitionInfeasible indicates a (size, k) pair for which no split exists.
	// Sampling k-1 distinct cut points from size+1 positions is impossible.
	ErrPartitionInfeasible = "PARTITION_INFEASIBLE"

	// ErrUrnInvalid indicates an urn definition violates its invariants.
	ErrUrnInvalid = "URN_INVALID"

	// ErrDrawZeroWeight indicates a draw from an urn holding no balls.
	// An empty urn should never reach the sampler.
	ErrDrawZeroWeight = "DRAW_ZERO_WEIGHT"
)

// -----------------------------------------------------------------------------
// Session Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrDemographicsIncomplete indicates a demographics record with missing fields.
	ErrDemographicsIncomplete = "DEMOGRAPHICS_INCOMPLETE"

	// ErrDemographicsAlreadySet indicates demographics were supplied twice.
	ErrDemographicsAlreadySet = "DEMOGRAPHICS_ALREADY_SET"

	// ErrTrialLocked indicates a choice arrived while the previous draw was still showing.
	ErrTrialLocked = "TRIAL_LOCKED"

	// ErrNoTrial indicates there is no trial awaiting a choice.
	ErrNoTrial = "NO_TRIAL"

	// ErrUrnNotFound indicates the chosen urn is not part of the current trial.
	ErrUrnNotFound = "URN_NOT_FOUND"

	// ErrSessionFinalized indicates the record was already handed to the ledger.
	ErrSessionFinalized = "SESSION_FINALIZED"
)

// -----------------------------------------------------------------------------
// IO Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrLedgerOpenFailed indicates the ledger file could not be created or opened.
	ErrLedgerOpenFailed = "LEDGER_OPEN_FAILED"

	// ErrLedgerWriteFailed indicates appending a participant row failed.
	ErrLedgerWriteFailed = "LEDGER_WRITE_FAILED"

	// ErrLedgerHeaderMismatch indicates an existing ledger was written with a
	// different row layout, e.g. by the other design.
	ErrLedgerHeaderMismatch = "LEDGER_HEADER_MISMATCH"

	// ErrExportFailed indicates the session export could not be written.
	ErrExportFailed = "EXPORT_FAILED"
)
