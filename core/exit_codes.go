package core

// Process exit codes used by main.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeUsage   = 2

	// ExitCodeSIGINT follows the 128+signal convention.
	ExitCodeSIGINT = 130
)
