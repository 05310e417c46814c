package types

// Version is the canonical project version, shared by the CLI and the run
// report contract.
const Version = "0.3.0"
