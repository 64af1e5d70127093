// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API keys, passphrases, SSH keys)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - The X-API-Key header and any attribute carrying an API key
//   - Recovered WPA passphrases and pre-shared keys
//   - SSH private key material used for GPU offload transfers
//   - Bearer and basic authorization values
//
// Even in verbose mode, sensitive values are masked. Recovered passphrases
// belong in the results store and the attack report, never in logs that may
// be shipped off the device.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("crack finished",
//	    "password", "hunter22",  // Will be masked
//	    "target", "HomeNet-5G",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
